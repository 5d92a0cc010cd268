package distribution

// StorageInfo represents Google Drive storage quota information
type StorageInfo struct {
	TotalBytes     int64 // Zero when the account reports no limit
	UsedBytes      int64
	AvailableBytes int64
	Unlimited      bool
}

// HasSpaceFor returns true if there's enough space for the given bytes
func (s StorageInfo) HasSpaceFor(bytes int64) bool {
	if s.Unlimited {
		return true
	}
	return s.AvailableBytes >= bytes
}
