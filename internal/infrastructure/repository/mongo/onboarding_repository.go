package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/patient-onboarding/internal/domain/onboarding"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OnboardingRepository struct {
	users *mongodriver.Collection
}

func NewOnboardingRepository(m *Mongo) *OnboardingRepository {
	return &OnboardingRepository{users: m.users}
}

type userDocument struct {
	ID                  string            `bson:"_id"`
	Personal            *personalDocument `bson:"personal,omitempty"`
	OnboardingCompleted bool              `bson:"onboardingCompleted"`
	CreatedAt           time.Time         `bson:"createdAt"`
	UpdatedAt           time.Time         `bson:"updatedAt"`
}

type personalDocument struct {
	FullName          string    `bson:"fullName"`
	DateOfBirth       string    `bson:"dateOfBirth"`
	NationalID        string    `bson:"nationalId"`
	Gender            string    `bson:"gender"`
	Address           string    `bson:"address,omitempty"`
	ContactNumber     string    `bson:"contactNumber,omitempty"`
	ProfilePictureRef string    `bson:"profilePictureRef,omitempty"`
	CreatedAt         time.Time `bson:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt"`
}

func (r *OnboardingRepository) GetByUserID(ctx context.Context, userID string) (onboarding.Profile, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return onboarding.Profile{}, false, nil
	}

	var doc userDocument
	if err := r.users.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return onboarding.Profile{}, false, nil
		}
		return onboarding.Profile{}, false, fmt.Errorf("mongo get profile user_id=%s: %w", userID, err)
	}

	return profileFromDocument(doc), true, nil
}

// Upsert replaces the whole user document. Callers merge with the stored
// profile before writing.
func (r *OnboardingRepository) Upsert(ctx context.Context, profile onboarding.Profile) error {
	userID := strings.TrimSpace(profile.UserID)
	if userID == "" {
		return fmt.Errorf("mongo upsert profile: empty user id")
	}
	profile.UserID = userID

	_, err := r.users.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: userID}},
		documentFromProfile(profile),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo upsert profile user_id=%s: %w", userID, err)
	}
	return nil
}

func (r *OnboardingRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.D{{Key: "_id", Value: 1}}).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cur, err := r.users.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo list user ids: %w", err)
	}
	defer cur.Close(ctx)

	ids := make([]string, 0)
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("mongo decode user id: %w", err)
		}
		ids = append(ids, row.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo iterate user ids: %w", err)
	}
	return ids, nil
}

func documentFromProfile(profile onboarding.Profile) userDocument {
	doc := userDocument{
		ID:                  profile.UserID,
		OnboardingCompleted: profile.OnboardingCompleted,
		CreatedAt:           profile.CreatedAt.UTC(),
		UpdatedAt:           profile.UpdatedAt.UTC(),
	}
	if profile.HasPersonal() {
		p := profile.Personal
		doc.Personal = &personalDocument{
			FullName:          p.FullName,
			DateOfBirth:       p.DateOfBirth,
			NationalID:        p.NationalID,
			Gender:            string(p.Gender),
			Address:           p.Address,
			ContactNumber:     p.ContactNumber,
			ProfilePictureRef: p.ProfilePictureRef,
			CreatedAt:         p.CreatedAt.UTC(),
			UpdatedAt:         p.UpdatedAt.UTC(),
		}
	}
	return doc
}

func profileFromDocument(doc userDocument) onboarding.Profile {
	profile := onboarding.Profile{
		UserID:              doc.ID,
		OnboardingCompleted: doc.OnboardingCompleted,
		CreatedAt:           doc.CreatedAt.UTC(),
		UpdatedAt:           doc.UpdatedAt.UTC(),
	}
	if doc.Personal != nil {
		p := doc.Personal
		profile.Personal = onboarding.PersonalInformation{
			ProfileDraft: onboarding.ProfileDraft{
				FullName:          p.FullName,
				DateOfBirth:       p.DateOfBirth,
				NationalID:        p.NationalID,
				Gender:            onboarding.Gender(p.Gender),
				Address:           p.Address,
				ContactNumber:     p.ContactNumber,
				ProfilePictureRef: p.ProfilePictureRef,
			},
			CreatedAt: p.CreatedAt.UTC(),
			UpdatedAt: p.UpdatedAt.UTC(),
		}
	}
	return profile
}
