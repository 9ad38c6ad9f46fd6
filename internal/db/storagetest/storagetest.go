// Package storagetest holds the behaviour every storage.Storage backend must
// show. Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/biolink/internal/db/storage"
	"github.com/patric-chuzhbe/biolink/internal/models"
)

// Factory returns an empty backend. It is called once per sub-test and is
// responsible for registering its own cleanup.
type Factory func(t *testing.T) storage.Storage

// SampleDocument returns a document using every field, with socials and
// links in a non-sorted order.
func SampleDocument(name string) *models.Document {
	return &models.Document{
		Profile: models.Profile{
			Name:     name,
			Bio:      "bio of " + name,
			ImageURL: "https://img.test/" + name + ".png",
		},
		Socials: models.Socials{
			{Platform: "youtube", URL: "https://y.test/" + name},
			{Platform: "twitter", URL: "https://t.test/" + name},
			{Platform: "github", URL: "https://g.test/" + name},
		},
		Links: []models.Link{
			{ID: 3, Title: "Third", URL: "https://3.test"},
			{ID: 1, Title: "First", URL: "https://1.test", Description: "first one"},
			{ID: 1, Title: "Duplicate id", URL: "https://dup.test"},
		},
		Theme:              models.ThemeDark,
		Animation:          "fade",
		BackgroundEffect:   models.EffectParticles,
		BackgroundImageURL: "https://bg.test/" + name + ".jpg",
	}
}

// Run executes the shared storage behaviour against the backend built by newStorage.
func Run(t *testing.T, newStorage Factory) {
	t.Run("default document on first access", func(t *testing.T) {
		theStorage := newStorage(t)
		ctx := context.Background()

		doc, err := theStorage.GetDocument(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.DefaultDocument(), doc)

		again, err := theStorage.GetDocument(ctx)
		require.NoError(t, err)
		assert.Equal(t, doc, again)
	})

	t.Run("put then get round-trips", func(t *testing.T) {
		theStorage := newStorage(t)
		ctx := context.Background()

		want := SampleDocument("jane")
		require.NoError(t, theStorage.SaveDocument(ctx, want))

		got, err := theStorage.GetDocument(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("returned document is not shared", func(t *testing.T) {
		theStorage := newStorage(t)
		ctx := context.Background()

		want := SampleDocument("jane")
		require.NoError(t, theStorage.SaveDocument(ctx, want))
		want.Profile.Name = "mutated after save"

		got, err := theStorage.GetDocument(ctx)
		require.NoError(t, err)
		assert.Equal(t, "jane", got.Profile.Name)

		got.Links[0].Title = "mutated after get"
		again, err := theStorage.GetDocument(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Third", again.Links[0].Title)
	})

	t.Run("last write wins", func(t *testing.T) {
		theStorage := newStorage(t)
		ctx := context.Background()

		require.NoError(t, theStorage.SaveDocument(ctx, SampleDocument("first")))
		require.NoError(t, theStorage.SaveDocument(ctx, SampleDocument("second")))

		got, err := theStorage.GetDocument(ctx)
		require.NoError(t, err)
		assert.Equal(t, SampleDocument("second"), got)
	})

	t.Run("concurrent readers never see a torn document", func(t *testing.T) {
		theStorage := newStorage(t)
		ctx := context.Background()

		require.NoError(t, theStorage.SaveDocument(ctx, SampleDocument("w0")))

		const writers = 4
		const rounds = 10
		valid := map[string]*models.Document{}
		for i := 0; i < writers; i++ {
			name := fmt.Sprintf("w%d", i)
			valid[name] = SampleDocument(name)
		}

		var wg sync.WaitGroup
		errs := make(chan error, writers*rounds*2)
		for i := 0; i < writers; i++ {
			doc := valid[fmt.Sprintf("w%d", i)]
			wg.Add(2)
			go func() {
				defer wg.Done()
				for r := 0; r < rounds; r++ {
					if err := theStorage.SaveDocument(ctx, doc); err != nil {
						errs <- err
					}
				}
			}()
			go func() {
				defer wg.Done()
				for r := 0; r < rounds; r++ {
					got, err := theStorage.GetDocument(ctx)
					if err != nil {
						errs <- err
						continue
					}
					want, ok := valid[got.Profile.Name]
					if !ok || !assert.ObjectsAreEqual(want, got) {
						errs <- fmt.Errorf("torn document observed: %+v", got)
					}
				}
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
	})

	t.Run("ping", func(t *testing.T) {
		theStorage := newStorage(t)
		assert.NoError(t, theStorage.Ping(context.Background()))
	})
}
