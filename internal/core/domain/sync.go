package domain

// RemoteFile is one object listed from the remote store.
type RemoteFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ModifiedTime string `json:"modified_time"`
}

// SyncManifest records the last-seen modification time per remote file name
// so pull sync only downloads what changed.
type SyncManifest map[string]ManifestEntry

type ManifestEntry struct {
	ModifiedTime string `json:"modifiedTime"`
}
