// internal/app/features/backup/types.go
package backup

// backupRequest is the JSON body for POST /admin/backup. Filename is
// optional; a unique name is minted when it is empty.
type backupRequest struct {
	Filename string `json:"filename"`
}

// backupResponse reports where the backup landed and how many records it
// holds.
type backupResponse struct {
	Filename string `json:"filename"`
	Records  int    `json:"records"`
}

// restoreRequest is the JSON body for POST /admin/restore. Merge true
// skips records whose title already exists instead of clearing the table.
// A non-empty Group restores only that group's records.
type restoreRequest struct {
	Filename string `json:"filename"`
	Merge    bool   `json:"merge"`
	Group    string `json:"group"`
}
