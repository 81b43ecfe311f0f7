// Package model holds the durable entities of a release: the files it was
// imported from, the encrypted blocks those files were carved into, the
// tracks a listener sees, and the junction rows that map one to the other.
package model

import "time"

// ImportStatus is the lifecycle state of a Release or a Track.
type ImportStatus string

const (
	StatusQueued    ImportStatus = "queued"
	StatusImporting ImportStatus = "importing"
	StatusComplete  ImportStatus = "complete"
	StatusFailed    ImportStatus = "failed"
)

// Release is the unit of import: a collection of tracks and source files
// that were carved into blocks together.
type Release struct {
	ID                string       `gorm:"primaryKey;type:char(36)" json:"id"`
	CatalogRef        string       `json:"catalogRef,omitempty"` // optional external catalog identity
	ImportStatus      ImportStatus `gorm:"type:varchar(16);index" json:"importStatus"`
	BlockSizeBytes    int64        `json:"blockSizeBytes"`
	FailureReason     string       `json:"failureReason,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

func (Release) TableName() string { return "releases" }

// Track is a logical playable unit belonging to a Release.
type Track struct {
	ID           string       `gorm:"primaryKey;type:char(36)" json:"id"`
	ReleaseID    string       `gorm:"type:char(36);index" json:"releaseId"`
	Number       int          `json:"number"` // 1-indexed, unique within release
	Title        string       `json:"title"`
	DurationMS   int64        `json:"durationMs"`
	ImportStatus ImportStatus `gorm:"type:varchar(16);index" json:"importStatus"`
	// PendingBlocks is the in-progress countdown the import pipeline's
	// accounting stage decrements; it reaches zero exactly once, the
	// moment the track's last block has been durably persisted.
	PendingBlocks int       `json:"pendingBlocks"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Track) TableName() string { return "tracks" }

// FileFormat tags a source File by what it contains.
type FileFormat string

const (
	FormatFLAC      FileFormat = "flac"
	FormatWAV       FileFormat = "wav"
	FormatMP3       FileFormat = "mp3"
	FormatM4A       FileFormat = "m4a"
	FormatAAC       FileFormat = "aac"
	FormatOGG       FileFormat = "ogg"
	FormatCueSheet  FileFormat = "cue"
	FormatRipLog    FileFormat = "log"
	FormatCoverArt  FileFormat = "image"
)

// IsAudio reports whether a FileFormat is a playable audio container
// rather than a metadata sidecar.
func (f FileFormat) IsAudio() bool {
	switch f {
	case FormatFLAC, FormatWAV, FormatMP3, FormatM4A, FormatAAC, FormatOGG:
		return true
	default:
		return false
	}
}

// File is one physical source file within a Release.
type File struct {
	ID           string     `gorm:"primaryKey;type:char(36)" json:"id"`
	ReleaseID    string     `gorm:"type:char(36);index" json:"releaseId"`
	RelativePath string     `json:"relativePath"`
	SizeBytes    int64      `json:"sizeBytes"`
	Format       FileFormat `gorm:"type:varchar(16)" json:"format"`
	// ContainerHeader holds, for a disc-image container only, the raw
	// bytes of the container's own STREAMINFO metadata block (used to
	// derive per-track synthetic headers at import time).
	ContainerHeader []byte    `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (File) TableName() string { return "files" }

// Block is one fixed-size (except possibly the last in a release)
// AEAD-encrypted unit of remote storage.
type Block struct {
	ID            string    `gorm:"primaryKey;type:char(36)" json:"id"`
	ReleaseID     string    `gorm:"type:char(36);index" json:"releaseId"`
	Index         int       `gorm:"index" json:"index"` // 0-based, dense within a release
	EncryptedSize int64     `json:"encryptedSize"`
	RemoteKey     string    `json:"remoteKey"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (Block) TableName() string { return "blocks" }

// FileBlock maps the byte range of one File that is held within one Block.
type FileBlock struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	FileID       string `gorm:"type:char(36);index" json:"fileId"`
	BlockID      string `gorm:"type:char(36);index" json:"blockId"`
	BlockIndex   int    `json:"blockIndex"` // denormalized for ORDER BY without a join
	StartInBlock int    `json:"startInBlock"`
	EndInBlock   int    `json:"endInBlock"`
	// FileOffset is the absolute offset within File where this slice begins.
	FileOffset int64 `json:"fileOffset"`
}

func (FileBlock) TableName() string { return "file_blocks" }

// TrackPosition locates a Track's audio payload within its owning File.
type TrackPosition struct {
	ID              int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	TrackID         string `gorm:"type:char(36);uniqueIndex" json:"trackId"`
	FileID          string `gorm:"type:char(36);index" json:"fileId"`
	StartChunkIndex int    `json:"startChunkIndex"`
	EndChunkIndex   int    `json:"endChunkIndex"`
	StartByteOffset int64  `json:"startByteOffset"`
	EndByteOffset   int64  `json:"endByteOffset"`
	// DiscImage is true when FileID refers to a multi-track container and
	// reassembly must run the frame-header rewrite of the discimage package.
	DiscImage bool `json:"discImage"`
	// SyntheticHeader is the per-track STREAMINFO-only header synthesized
	// at import time (§4.8); empty for per-file-mode tracks.
	SyntheticHeader []byte `json:"-"`
	// StartSample is the encoded number of the track's first frame (a
	// sample number on variable-block-size streams, a frame index on
	// fixed-block-size streams), needed to rewrite frame/sample numbers
	// to be track-relative.
	StartSample uint64 `json:"startSample"`
}

func (TrackPosition) TableName() string { return "track_positions" }

// Artist and ArtistRole are carried opaquely for the catalog UI; the
// engine never reads or validates their contents.
type Artist struct {
	ID          string `gorm:"primaryKey;type:char(36)" json:"id"`
	DisplayName string `json:"displayName"`
}

func (Artist) TableName() string { return "artists" }

type ArtistRole struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ArtistID string `gorm:"type:char(36);index" json:"artistId"`
	ReleaseID string `gorm:"type:char(36);index" json:"releaseId"`
	Role     string `json:"role"`
}

func (ArtistRole) TableName() string { return "artist_roles" }
