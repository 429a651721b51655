package core

import (
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/socialnet/internal/store"
)

// UserFeed maps the user feed columns to user attributes.
var UserFeed = Feed{
	Collection: store.Users,
	Fields: []FieldSpec{
		{Column: "USER_ID", Attribute: store.AttrUserID, Validate: ValidateUserID},
		{Column: "EMAIL", Attribute: store.AttrUserEmail, Validate: ValidateEmail},
		{Column: "NAME", Attribute: store.AttrUserName, Validate: ValidateName},
		{Column: "LASTNAME", Attribute: store.AttrUserLastName, Validate: ValidateName},
	},
}

// StatusFeed maps the status feed columns to status attributes.
var StatusFeed = Feed{
	Collection: store.Statuses,
	Fields: []FieldSpec{
		{Column: "STATUS_ID", Attribute: store.AttrStatusID, Validate: ValidateStatusID},
		{Column: "USER_ID", Attribute: store.AttrUserID, Validate: ValidateUserID},
		{Column: "STATUS_TEXT", Attribute: store.AttrStatusText, Validate: ValidateStatusText},
	},
}

var (
	registry   = make(map[store.Collection]Feed)
	registryMu sync.RWMutex
)

func init() {
	Register(UserFeed)
	Register(StatusFeed)
}

// Register adds a feed definition to the registry.
// Panics if a feed for the same collection is already registered.
func Register(feed Feed) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[feed.Collection]; exists {
		panic(fmt.Sprintf("feed already registered: %s", feed.Collection))
	}
	registry[feed.Collection] = feed
}

// FeedFor returns the feed definition for a collection.
// Returns false if not found.
func FeedFor(c store.Collection) (Feed, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	feed, ok := registry[c]
	return feed, ok
}

// Feeds returns all registered feeds sorted by collection name.
func Feeds() []Feed {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Feed, 0, len(registry))
	for _, feed := range registry {
		result = append(result, feed)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Collection < result[j].Collection
	})

	return result
}
