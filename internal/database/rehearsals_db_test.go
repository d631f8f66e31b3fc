package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rehearsal-scheduler/app/internal/models"
)

func createRehearsalFor(t *testing.T, db *sqlx.DB, band *models.Band, creator *models.User, title string, hoursFromNow int) *models.Rehearsal {
	t.Helper()
	start := time.Now().Add(time.Duration(hoursFromNow) * time.Hour).Truncate(time.Second)
	rehearsal, err := CreateRehearsal(context.Background(), db, &models.Rehearsal{
		BandID:    band.ID,
		Title:     title,
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Location:  "Studio",
		CreatedBy: creator.ID,
	})
	if err != nil {
		t.Fatalf("Failed to create test rehearsal %s: %v", title, err)
	}
	return rehearsal
}

func TestCreateRehearsalAndGetRehearsal(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	alice := createTestUser(t, db, "Alice", "alice@example.com")
	band := createBandFor(t, db, alice, "The Band")
	start := time.Date(2030, 5, 1, 19, 0, 0, 0, time.FixedZone("CEST", 2*60*60))

	created, err := CreateRehearsal(ctx, db, &models.Rehearsal{
		BandID:      band.ID,
		Title:       "Dress rehearsal",
		Description: "Full set",
		StartTime:   start,
		EndTime:     start.Add(3 * time.Hour),
		Location:    "Hall",
		CreatedBy:   alice.ID,
	})
	if err != nil {
		t.Fatalf("CreateRehearsal() error = %v", err)
	}
	if created.ID == 0 {
		t.Errorf("CreateRehearsal() returned rehearsal with ID 0")
	}
	if !created.StartTime.Equal(start) {
		t.Errorf("CreateRehearsal() StartTime = %v, want %v", created.StartTime, start)
	}
	if created.Band == nil || created.Band.Name != "The Band" {
		t.Errorf("CreateRehearsal() Band = %+v, want name %q", created.Band, "The Band")
	}
	if created.AttendanceCount != 0 {
		t.Errorf("CreateRehearsal() AttendanceCount = %d, want 0", created.AttendanceCount)
	}

	_, err = GetRehearsalByID(ctx, db, 99999)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetRehearsalByID() for non-existent rehearsal error = %v, want %v", err, sql.ErrNoRows)
	}
}

func TestListRehearsalsForUser(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	alice := createTestUser(t, db, "Alice", "alice@example.com")
	bob := createTestUser(t, db, "Bob", "bob@example.com")
	bandA := createBandFor(t, db, alice, "A")
	bandB := createBandFor(t, db, alice, "B")
	bobsBand := createBandFor(t, db, bob, "Bob's")

	createRehearsalFor(t, db, bandA, alice, "A later", 72)
	createRehearsalFor(t, db, bandB, alice, "B soon", 24)
	createRehearsalFor(t, db, bandA, alice, "A past", -24)
	createRehearsalFor(t, db, bobsBand, bob, "Not mine", 12)

	tests := []struct {
		name   string
		filter models.RehearsalFilter
		want   []string
	}{
		{"all", models.RehearsalFilter{}, []string{"A past", "B soon", "A later"}},
		{"band", models.RehearsalFilter{BandID: bandA.ID}, []string{"A past", "A later"}},
		{"from now", models.RehearsalFilter{From: time.Now()}, []string{"B soon", "A later"}},
		{"window", models.RehearsalFilter{From: time.Now(), To: time.Now().Add(48 * time.Hour)}, []string{"B soon"}},
		{"limit", models.RehearsalFilter{From: time.Now(), Limit: 1}, []string{"B soon"}},
		{"other user's band", models.RehearsalFilter{BandID: bobsBand.ID}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rehearsals, err := ListRehearsalsForUser(ctx, db, alice.ID, tt.filter)
			if err != nil {
				t.Fatalf("ListRehearsalsForUser() error = %v", err)
			}
			var got []string
			for _, r := range rehearsals {
				got = append(got, r.Title)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListRehearsalsForUser() got = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ListRehearsalsForUser() got = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestUpdateAndDeleteRehearsal(t *testing.T) {
	db, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	alice := createTestUser(t, db, "Alice", "alice@example.com")
	band := createBandFor(t, db, alice, "Band")
	rehearsal := createRehearsalFor(t, db, band, alice, "Original", 24)

	rehearsal.Title = "Moved"
	rehearsal.Location = "Garage"
	updated, err := UpdateRehearsal(ctx, db, rehearsal)
	if err != nil {
		t.Fatalf("UpdateRehearsal() error = %v", err)
	}
	if updated.Title != "Moved" || updated.Location != "Garage" {
		t.Errorf("UpdateRehearsal() got = %q/%q, want Moved/Garage", updated.Title, updated.Location)
	}

	if err := DeleteRehearsal(ctx, db, rehearsal.ID); err != nil {
		t.Fatalf("DeleteRehearsal() error = %v", err)
	}
	if err := DeleteRehearsal(ctx, db, rehearsal.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("DeleteRehearsal() twice error = %v, want %v", err, sql.ErrNoRows)
	}
}
