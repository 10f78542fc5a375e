package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homelibrary/homelibrary-server/internal/domain"
	"github.com/homelibrary/homelibrary-server/internal/store"
)

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCreateBook_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")

	raw := []byte("{\n  \"title\": \"こころ\",\n  \"key\": \"/books/OL1M\" }\n")
	b := &domain.Book{
		UserID:    alice.ID,
		ISBN:      "9784003101019",
		Title:     "こころ",
		Authors:   "夏目漱石",
		Tags:      "novel, classic",
		Location:  "Shelf A",
		Notes:     "first edition",
		Status:    domain.StatusUnread,
		CoverURL:  "https://covers.openlibrary.org/b/isbn/9784003101019-L.jpg",
		Source:    domain.SourceOpenLibrary,
		MetaJSON:  raw,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
	require.NoError(t, s.CreateBook(ctx, b))
	require.NotZero(t, b.ID)

	got, err := s.GetBook(ctx, alice.ID, b.ID)
	require.NoError(t, err)

	assert.Equal(t, raw, got.MetaJSON)
	assert.Equal(t, b.Title, got.Title)
	assert.Equal(t, b.Authors, got.Authors)
	assert.Equal(t, b.Tags, got.Tags)
	assert.Equal(t, b.Location, got.Location)
	assert.Equal(t, b.Notes, got.Notes)
	assert.Equal(t, b.CoverURL, got.CoverURL)
	assert.Equal(t, b.Source, got.Source)
	assert.True(t, baseTime.Equal(got.CreatedAt))
	assert.True(t, baseTime.Equal(got.UpdatedAt))
}

func TestCreateBook_EmptyOptionalFieldsAreNull(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")

	b := makeTestBook(alice.ID, "Plain", baseTime)
	require.NoError(t, s.CreateBook(ctx, b))

	var nulls int
	err := s.db.QueryRow(`SELECT (isbn IS NULL) + (authors IS NULL) + (meta_json IS NULL) FROM books WHERE id = ?`, b.ID).Scan(&nulls)
	require.NoError(t, err)
	assert.Equal(t, 3, nulls)

	got, err := s.GetBook(ctx, alice.ID, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got.MetaJSON)
}

func TestGetBook_OtherOwnerIsNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")

	b := makeTestBook(alice.ID, "Private", baseTime)
	require.NoError(t, s.CreateBook(ctx, b))

	_, err := s.GetBook(ctx, bob.ID, b.ID)
	assert.ErrorIs(t, err, store.ErrBookNotFound)

	_, err = s.GetBook(ctx, alice.ID, b.ID+100)
	assert.ErrorIs(t, err, store.ErrBookNotFound)
}

func TestListBooks_FilterAndOwnerScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")

	flask := makeTestBook(alice.ID, "Flask Web Development", baseTime)
	python := makeTestBook(alice.ID, "Learning Python", baseTime.Add(time.Minute))
	python.Tags = "flask, web"
	other := makeTestBook(alice.ID, "Kokoro", baseTime.Add(2*time.Minute))
	other.Authors = "Natsume Soseki"
	other.ISBN = "9784003101019"
	bobs := makeTestBook(bob.ID, "Flask Web Development", baseTime.Add(3*time.Minute))
	for _, b := range []*domain.Book{flask, python, other, bobs} {
		require.NoError(t, s.CreateBook(ctx, b))
	}

	titles := func(books []*domain.Book) []string {
		var out []string
		for _, b := range books {
			out = append(out, b.Title)
		}
		return out
	}

	tests := []struct {
		filter string
		want   []string
	}{
		{"", []string{"Kokoro", "Learning Python", "Flask Web Development"}},
		{"flask", []string{"Learning Python", "Flask Web Development"}},
		{"FLASK", []string{"Learning Python", "Flask Web Development"}},
		{"soseki", []string{"Kokoro"}},
		{"978400", []string{"Kokoro"}},
		{"  kokoro  ", []string{"Kokoro"}},
		{"%", nil},
		{"_", nil},
		{"missing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			books, err := s.ListBooks(ctx, alice.ID, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(books))
		})
	}

	bobBooks, err := s.ListBooks(ctx, bob.ID, "flask")
	require.NoError(t, err)
	require.Len(t, bobBooks, 1)
	assert.Equal(t, bobs.ID, bobBooks[0].ID)
}

func TestListBooks_TiesBreakByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")

	first := makeTestBook(alice.ID, "First", baseTime)
	second := makeTestBook(alice.ID, "Second", baseTime)
	require.NoError(t, s.CreateBook(ctx, first))
	require.NoError(t, s.CreateBook(ctx, second))

	books, err := s.ListBooks(ctx, alice.ID, "")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, second.ID, books[0].ID)
	assert.Equal(t, first.ID, books[1].ID)
}

func TestFindBookByISBN(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")

	b := makeTestBook(alice.ID, "Kokoro", baseTime)
	b.ISBN = "9784003101019"
	require.NoError(t, s.CreateBook(ctx, b))

	got, err := s.FindBookByISBN(ctx, alice.ID, "978-4-00-310101-9", "9784003101019")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = s.FindBookByISBN(ctx, bob.ID, "9784003101019")
	assert.ErrorIs(t, err, store.ErrBookNotFound)

	_, err = s.FindBookByISBN(ctx, alice.ID, "", "")
	assert.ErrorIs(t, err, store.ErrBookNotFound)
}

func TestGetBooksByIDs_KeepsOrderAndScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")

	a1 := makeTestBook(alice.ID, "A1", baseTime)
	a2 := makeTestBook(alice.ID, "A2", baseTime)
	b1 := makeTestBook(bob.ID, "B1", baseTime)
	for _, b := range []*domain.Book{a1, a2, b1} {
		require.NoError(t, s.CreateBook(ctx, b))
	}

	books, err := s.GetBooksByIDs(ctx, alice.ID, []int64{a2.ID, b1.ID, a1.ID, 999})
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, a2.ID, books[0].ID)
	assert.Equal(t, a1.ID, books[1].ID)

	none, err := s.GetBooksByIDs(ctx, alice.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateBook_LocationEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")

	b := makeTestBook(alice.ID, "Kokoro", baseTime)
	b.CoverURL = "https://example.test/cover.jpg"
	b.Source = domain.SourceGoogleBooks
	b.MetaJSON = []byte(`{"id":"abc"}`)
	require.NoError(t, s.CreateBook(ctx, b))

	steps := []struct {
		location  string
		wantEvent bool
	}{
		{"", false},
		{"Shelf A", true},
		{"Shelf A", false},
		{" Shelf A ", false},
		{"Shelf B", true},
		{"", false},
		{"Shelf B", true},
	}

	for i, step := range steps {
		b.Location = step.location
		b.UpdatedAt = baseTime.Add(time.Duration(i+1) * time.Minute)
		ev, err := s.UpdateBook(ctx, b)
		require.NoError(t, err, "step %d", i)
		if step.wantEvent {
			require.NotNil(t, ev, "step %d", i)
			assert.Equal(t, b.ID, ev.BookID)
			assert.Equal(t, alice.ID, ev.UserID)
			assert.Equal(t, step.location, ev.Location)
		} else {
			assert.Nil(t, ev, "step %d", i)
		}
	}

	history, err := s.LocationHistory(ctx, alice.ID, b.ID, domain.HistoryLimit)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []string{"Shelf B", "Shelf B", "Shelf A"},
		[]string{history[0].Location, history[1].Location, history[2].Location})

	got, err := s.GetBook(ctx, alice.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/cover.jpg", got.CoverURL)
	assert.Equal(t, domain.SourceGoogleBooks, got.Source)
	assert.Equal(t, []byte(`{"id":"abc"}`), got.MetaJSON)
	assert.True(t, baseTime.Add(7*time.Minute).Equal(got.UpdatedAt))
	assert.True(t, baseTime.Equal(got.CreatedAt))
}

func TestUpdateBook_OtherOwnerIsNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")

	b := makeTestBook(alice.ID, "Kokoro", baseTime)
	require.NoError(t, s.CreateBook(ctx, b))

	stolen := *b
	stolen.UserID = bob.ID
	stolen.Title = "Mine now"
	stolen.Location = "Bob's shelf"
	_, err := s.UpdateBook(ctx, &stolen)
	assert.ErrorIs(t, err, store.ErrBookNotFound)

	got, err := s.GetBook(ctx, alice.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kokoro", got.Title)

	history, err := s.LocationHistory(ctx, alice.ID, b.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestLocationHistory_LimitAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")

	b := makeTestBook(alice.ID, "Wanderer", baseTime)
	require.NoError(t, s.CreateBook(ctx, b))

	for i := range 55 {
		b.Location = "Shelf " + string(rune('A'+i%26)) + string(rune('a'+i/26))
		b.UpdatedAt = baseTime.Add(time.Duration(i+1) * time.Second)
		_, err := s.UpdateBook(ctx, b)
		require.NoError(t, err)
	}

	history, err := s.LocationHistory(ctx, alice.ID, b.ID, domain.HistoryLimit)
	require.NoError(t, err)
	require.Len(t, history, domain.HistoryLimit)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].ChangedAt.After(history[i-1].ChangedAt))
	}
	assert.Equal(t, b.Location, history[0].Location)
}

func TestEachBook_SkipsOrphans(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")

	require.NoError(t, s.CreateBook(ctx, makeTestBook(alice.ID, "One", baseTime)))
	require.NoError(t, s.CreateBook(ctx, makeTestBook(alice.ID, "Two", baseTime)))

	var seen []string
	err := s.EachBook(ctx, func(b *domain.Book) error {
		seen = append(seen, b.Title)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"One", "Two"}, seen)
}
