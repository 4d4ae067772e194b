package activitypub

import (
	"fmt"
	"sort"

	"github.com/deemkeen/groupodon/domain"
)

// Collection is an ephemeral ActivityPub container, computed per request and
// never persisted.
type Collection struct {
	Context      any             `json:"@context,omitempty"`
	ID           string          `json:"id,omitempty"`
	Type         string          `json:"type"`
	TotalItems   int             `json:"totalItems"`
	Items        []any           `json:"items,omitempty"`
	OrderedItems []any           `json:"orderedItems,omitempty"`
	First        *CollectionPage `json:"first,omitempty"`
	Current      *CollectionPage `json:"current,omitempty"`
}

// CollectionPage is a single page of a paginated collection.
type CollectionPage struct {
	ID     string `json:"id,omitempty"`
	Type   string `json:"type"`
	PartOf string `json:"partOf,omitempty"`
	Items  []any  `json:"items"`
	Prev   string `json:"prev,omitempty"`
	Next   string `json:"next,omitempty"`
}

// CreateCollection builds a plain Collection over the items, preserving their
// order. totalItems always equals the item count at computation time.
func CreateCollection(items []any) *Collection {
	return &Collection{
		Context:    domain.ActivityStreamsContext,
		Type:       "Collection",
		TotalItems: len(items),
		Items:      items,
	}
}

// CreateOrderedCollection builds an OrderedCollection over the activities,
// sorted by creation time descending. The sort mutates the input slice in
// place; callers needing the original order must pass a copy. Ordered items
// are the activities' payload objects.
func CreateOrderedCollection(activities []domain.Activity) *Collection {
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Created.After(activities[j].Created)
	})

	items := make([]any, 0, len(activities))
	for i := range activities {
		items = append(items, activities[i].Object)
	}

	return &Collection{
		Context:      domain.ActivityStreamsContext,
		Type:         "OrderedCollection",
		TotalItems:   len(items),
		OrderedItems: items,
	}
}

// CreateCollectionPage slices one page out of the items and computes the
// prev/next links. Page numbering starts at 1; a page whose start position
// lies past the end of the list is out of range.
func CreateCollectionPage(items []any, baseUri string, pageNumber, pageLength int) (error, *CollectionPage) {
	if pageNumber < 1 {
		return fmt.Errorf("%w: page %d", domain.ErrOutOfRange, pageNumber), nil
	}

	startPos := (pageNumber - 1) * pageLength
	if startPos > len(items) {
		return fmt.Errorf("%w: page %d of %d items", domain.ErrOutOfRange, pageNumber, len(items)), nil
	}

	endPos := startPos + pageLength
	if endPos > len(items) {
		endPos = len(items)
	}

	page := &CollectionPage{
		ID:     fmt.Sprintf("%s?page=%d", baseUri, pageNumber),
		Type:   "CollectionPage",
		PartOf: baseUri,
		Items:  items[startPos:endPos],
	}

	if startPos != 0 {
		page.Prev = fmt.Sprintf("%s?page=%d", baseUri, pageNumber-1)
	}
	if endPos != len(items) {
		page.Next = fmt.Sprintf("%s?page=%d", baseUri, pageNumber+1)
	}

	return nil, page
}

// CreatePagedCollection wraps a single page of the items in a collection
// shell: the first page when page is 0 or 1, the current page otherwise. It
// never carries a full page index, and its totalItems counts at most one
// page's worth of items, not the full collection.
func CreatePagedCollection(items []any, perPage int, baseUri string, page int) (error, *Collection) {
	pageNumber := page
	if pageNumber == 0 {
		pageNumber = 1
	}

	err, collectionPage := CreateCollectionPage(items, baseUri, pageNumber, perPage)
	if err != nil {
		return err, nil
	}

	totalItems := len(items)
	if totalItems > perPage {
		totalItems = perPage
	}

	collection := &Collection{
		Context:    domain.ActivityStreamsContext,
		ID:         baseUri,
		Type:       "OrderedCollection",
		TotalItems: totalItems,
	}

	if page == 0 || page == 1 {
		collection.First = collectionPage
	} else {
		collection.Current = collectionPage
	}

	return nil, collection
}
