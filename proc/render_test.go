package proc

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessagesAdded(t *testing.T) {
	m := Messages{Emojis: testEmojis}
	tr := track("Song", 3*time.Minute+5*time.Second)

	assert.Equal(t, "🎶 Added **Song** (`03:05`) to begin playing", m.Added(tr, 1))
	assert.Equal(t, "🎶 Added **Song** (`03:05`) to the queue at position 1", m.Added(tr, 2))
	assert.Equal(t, "🎶 Added **Song** (`03:05`) to the queue at position 6", m.Added(tr, 7))
}

func TestMessagesPlaylistSummary(t *testing.T) {
	m := Messages{Emojis: testEmojis}

	assert.Equal(t, "💡 No tracks were loaded!", m.PlaylistSummary(&PlaylistLoadReport{}))
	assert.Equal(t, "🎶 Loaded **3** tracks!", m.PlaylistSummary(&PlaylistLoadReport{Loaded: 3}))

	got := m.PlaylistSummary(&PlaylistLoadReport{Loaded: 1, Errors: []PlaylistItemError{
		{Index: 0, Item: "a", Reason: "No results found"},
		{Index: 4, Item: "b", Reason: "Failed to load track"},
	}})
	assert.Equal(t, "🎶 Loaded **1** tracks!\n\nThe following tracks failed to load:\n`[1]` **a**: No results found\n`[5]` **b**: Failed to load track", got)
}

func TestMessagesPlaylistSummaryTruncates(t *testing.T) {
	m := Messages{Emojis: testEmojis}
	report := &PlaylistLoadReport{}
	for i := range 200 {
		report.Errors = append(report.Errors, PlaylistItemError{Index: i, Item: fmt.Sprintf("track number %d", i), Reason: "No results found"})
	}

	got := m.PlaylistSummary(report)
	assert.Equal(t, 2000, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, " (...)"))
	assert.True(t, strings.HasPrefix(got, "💡 No tracks were loaded!"))
}

func TestMessagesCatalogFailure(t *testing.T) {
	m := Messages{Emojis: testEmojis}
	assert.Equal(t, "🚫 Spotify API error: invalid id", m.CatalogFailure(&CatalogError{Kind: CatalogAuth, Message: "invalid id"}))
	assert.Equal(t, "🚫 Network error while accessing Spotify API.", m.CatalogFailure(&CatalogError{Kind: CatalogNetwork}))
	assert.Equal(t, "🚫 Error processing Spotify URL.", m.CatalogFailure(&CatalogError{Kind: CatalogOther}))
}
