package service

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/everkeep/everkeep/pkg/memorial"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// MemberInput describes one family member in a create or edit payload.
type MemberInput struct {
	Name         string `json:"name" validate:"required,max=120"`
	Relationship string `json:"relationship" validate:"max=60"`
	Born         string `json:"born,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Died         string `json:"died,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ImageURL     string `json:"image_url,omitempty" validate:"omitempty,url"`
	VideoURL     string `json:"video_url,omitempty" validate:"omitempty,url"`
}

// CreateInput is the payload for CreateProfile.
type CreateInput struct {
	Kind        memorial.ProfileKind `json:"kind" validate:"required,oneof=individual family"`
	DisplayName string               `json:"display_name" validate:"required,min=1,max=120"`

	PrimaryImageURL  string   `json:"primary_image_url,omitempty" validate:"omitempty,url"`
	BannerImageURL   string   `json:"banner_image_url,omitempty" validate:"omitempty,url"`
	VideoURL         string   `json:"video_url,omitempty" validate:"omitempty,url"`
	GalleryImageURLs []string `json:"gallery_image_urls,omitempty" validate:"dive,url"`

	// Members applies to the family kind only.
	Members []MemberInput `json:"members,omitempty" validate:"dive"`
}

// Validate checks the payload using struct tags plus the rules that cannot
// be expressed in tags.
func (in *CreateInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return formatValidationError(err)
	}

	if in.Kind == memorial.ProfileKindIndividual && len(in.Members) > 0 {
		return memorial.NewValidationError("members", "an individual memorial cannot have members")
	}
	if len(in.Members) > memorial.DefaultMaxMembers {
		return memorial.NewValidationError("members",
			fmt.Sprintf("a family memorial holds at most %d members", memorial.DefaultMaxMembers))
	}

	return nil
}

// toProfile builds the initial profile record from the payload.
func (in *CreateInput) toProfile(userID string) *memorial.MemorialProfile {
	profile := &memorial.MemorialProfile{
		ID:               uuid.NewString(),
		OwnerID:          userID,
		Kind:             in.Kind,
		DisplayName:      in.DisplayName,
		CreatedAt:        time.Now(),
		PrimaryImageURL:  in.PrimaryImageURL,
		BannerImageURL:   in.BannerImageURL,
		VideoURL:         in.VideoURL,
		GalleryImageURLs: in.GalleryImageURLs,
		MaxEdits:         memorial.DefaultMaxEdits,
	}

	if in.Kind == memorial.ProfileKindFamily {
		profile.MaxMembers = memorial.DefaultMaxMembers
		for _, m := range in.Members {
			profile.Members = append(profile.Members, memorial.FamilyMember{
				Name:         m.Name,
				Relationship: m.Relationship,
				Born:         m.Born,
				Died:         m.Died,
				ImageURL:     m.ImageURL,
				VideoURL:     m.VideoURL,
			})
		}
	}

	return profile
}

// EditInput is the payload for EditProfile. Nil pointers leave the field
// untouched; set pointers replace it, so a client can clear a URL by
// sending an empty string.
type EditInput struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,min=1,max=120"`

	PrimaryImageURL  *string   `json:"primary_image_url,omitempty" validate:"omitempty,url"`
	BannerImageURL   *string   `json:"banner_image_url,omitempty" validate:"omitempty,url"`
	VideoURL         *string   `json:"video_url,omitempty" validate:"omitempty,url"`
	GalleryImageURLs *[]string `json:"gallery_image_urls,omitempty" validate:"omitempty,dive,url"`

	Members *[]MemberInput `json:"members,omitempty" validate:"omitempty,dive"`

	Published *bool `json:"published,omitempty"`
}

// Validate checks the payload.
func (in *EditInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return formatValidationError(err)
	}
	if in.Members != nil && len(*in.Members) > memorial.DefaultMaxMembers {
		return memorial.NewValidationError("members",
			fmt.Sprintf("a family memorial holds at most %d members", memorial.DefaultMaxMembers))
	}
	return nil
}

// apply copies the set fields onto the profile. The caller handles the edit
// counter and persistence.
func (in *EditInput) apply(profile *memorial.MemorialProfile) {
	if in.DisplayName != nil {
		profile.DisplayName = *in.DisplayName
	}
	if in.PrimaryImageURL != nil {
		profile.PrimaryImageURL = *in.PrimaryImageURL
	}
	if in.BannerImageURL != nil {
		profile.BannerImageURL = *in.BannerImageURL
	}
	if in.VideoURL != nil {
		profile.VideoURL = *in.VideoURL
	}
	if in.GalleryImageURLs != nil {
		profile.GalleryImageURLs = *in.GalleryImageURLs
	}
	if in.Members != nil && profile.Kind == memorial.ProfileKindFamily {
		members := make([]memorial.FamilyMember, 0, len(*in.Members))
		for _, m := range *in.Members {
			members = append(members, memorial.FamilyMember{
				Name:         m.Name,
				Relationship: m.Relationship,
				Born:         m.Born,
				Died:         m.Died,
				ImageURL:     m.ImageURL,
				VideoURL:     m.VideoURL,
			})
		}
		profile.Members = members
	}
	if in.Published != nil {
		profile.Published = *in.Published
		if *in.Published && profile.PublishedAt == nil {
			now := time.Now()
			profile.PublishedAt = &now
		}
	}
}

// MemoryInput is the payload for SubmitMemory.
type MemoryInput struct {
	AuthorName string `json:"author_name" validate:"required,max=120"`
	Text       string `json:"text" validate:"required,max=4000"`
	PhotoURL   string `json:"photo_url,omitempty" validate:"omitempty,url"`
}

// Validate checks the payload.
func (in *MemoryInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into domain validation
// errors naming the offending field.
func formatValidationError(err error) error {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		fe := errs[0]
		return memorial.NewValidationError(fe.Field(),
			fmt.Sprintf("failed validation rule %q", fe.Tag()))
	}
	return memorial.NewValidationError("", err.Error())
}
