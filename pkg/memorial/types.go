// Package memorial defines the memorial domain: profile records, the visitor
// memory wall, the append-only lifecycle history ledger, and the rules
// deciding who may create, edit, and delete.
//
// A user purchases a package and creates exactly one permanent memorial,
// individual or family. Editing is limited to a fixed number of revisions.
// Deletion is a one-time, irreversible lifetime action: once a user has
// deleted a memorial they can never create another.
package memorial

import "time"

// ProfileKind distinguishes the two memorial variants. Both share one
// lifecycle and one media-collection contract; the family variant adds
// member sub-entities.
type ProfileKind string

const (
	ProfileKindIndividual ProfileKind = "individual"
	ProfileKindFamily     ProfileKind = "family"
)

// Record collections. The record store enforces the storage-layer rules
// declared in Schema for each of these.
const (
	CollectionProfiles     = "profiles"
	CollectionMemories     = "memories"
	CollectionHistory      = "history"
	CollectionOrders       = "orders"
	CollectionCleanupTasks = "cleanup_tasks"
)

// MemorialProfile is the persistent record representing one memorial.
//
// Soft delete: DeletedAt is nil while the memorial is active. Deletion sets
// the timestamp and the row is retained forever; active-profile queries
// filter on deleted_at == null.
type MemorialProfile struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"owner_id"`
	Kind        ProfileKind `json:"kind"`
	DisplayName string      `json:"display_name"`

	// Slug is the unique URL-safe identifier derived from the display name
	// plus a disambiguating suffix.
	Slug string `json:"slug"`

	Published   bool       `json:"published"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at"`
	DeletedAt   *time.Time `json:"deleted_at"`

	// EditCount is monotonically non-decreasing and never exceeds MaxEdits.
	EditCount int `json:"edit_count"`
	MaxEdits  int `json:"max_edits"`

	// Media-bearing fields. Every URL here is a garbage-collection candidate
	// when the memorial is deleted.
	PrimaryImageURL  string   `json:"primary_image_url"`
	BannerImageURL   string   `json:"banner_image_url"`
	VideoURL         string   `json:"video_url"`
	QRImageURL       string   `json:"qr_image_url"`
	GalleryImageURLs []string `json:"gallery_image_urls"`

	// Members is populated for the family variant only.
	Members    []FamilyMember `json:"members,omitempty"`
	MaxMembers int            `json:"max_members,omitempty"`
}

// Active reports whether the profile has not been soft-deleted.
func (p *MemorialProfile) Active() bool {
	return p.DeletedAt == nil
}

// FamilyMember is a sub-entity of a family memorial. Its media fields are
// garbage-collection candidates alongside the profile's own.
type FamilyMember struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`

	// Born and Died are dates in "2006-01-02" form; either may be empty.
	Born string `json:"born,omitempty"`
	Died string `json:"died,omitempty"`

	ImageURL string `json:"image_url,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
}

// Memory is a visitor-submitted tribute attached to exactly one profile.
// Approved controls public visibility; submissions start unapproved.
type Memory struct {
	ID         string     `json:"id"`
	ProfileID  string     `json:"profile_id"`
	AuthorName string     `json:"author_name"`
	PhotoURL   string     `json:"photo_url,omitempty"`
	Text       string     `json:"text"`
	Approved   bool       `json:"approved"`
	CreatedAt  time.Time  `json:"created_at"`
	DeletedAt  *time.Time `json:"deleted_at"`
}

// HistoryAction is a lifecycle event type.
type HistoryAction string

const (
	ActionCreated HistoryAction = "created"
	ActionDeleted HistoryAction = "deleted"
)

// LifecycleHistoryEntry is an immutable ledger record. The existence of a
// "deleted" entry for a user is permanent and is the sole authority for the
// lifetime ban (see HistoryLedger).
type LifecycleHistoryEntry struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	ProfileID  string        `json:"profile_id"`
	Action     HistoryAction `json:"action"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// OrderStatus is the state of a package purchase.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderRefunded  OrderStatus = "refunded"
)

// Order is written by the payment collaborator; this subsystem only reads it
// to decide creation and upload eligibility.
type Order struct {
	ID       string      `json:"id"`
	UserID   string      `json:"user_id"`
	Status   OrderStatus `json:"status"`
	PlacedAt time.Time   `json:"placed_at"`
}

// CleanupTask is an outbox row enqueuing orphaned media for deletion. It is
// written in the same transaction as the soft delete that orphaned the
// media, and drained by the cleanup worker with bounded retries. URLs are
// stored rather than keys so a re-drive resolves them through the same
// extractor as the first attempt; deleting an already-absent key counts as
// success, which makes retries idempotent.
type CleanupTask struct {
	ID         string    `json:"id"`
	ProfileID  string    `json:"profile_id"`
	URLs       []string  `json:"urls"`
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	LastError  string    `json:"last_error,omitempty"`
}

// Default lifecycle limits applied at creation when the payload does not
// carry package-specific values.
const (
	DefaultMaxEdits   = 3
	DefaultMaxMembers = 10
)
