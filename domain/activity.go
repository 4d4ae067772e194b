package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const ActivityStreamsContext = "https://www.w3.org/ns/activitystreams"

// PublicAddress is the well-known sentinel URI meaning "visible to anyone".
const PublicAddress = "https://www.w3.org/ns/activitystreams#Public"

// Supported activity type tags.
const (
	TypeCreate = "Create"
	TypeDelete = "Delete"
	TypeUpdate = "Update"
	TypeFollow = "Follow"
	TypeAccept = "Accept"
	TypeLike   = "Like"
	TypeAdd    = "Add"
	TypeRemove = "Remove"
	TypeBlock  = "Block"
	TypeUndo   = "Undo"

	TypeArticle   = "Article"
	TypeTombstone = "Tombstone"
)

// Activity is a persisted activity row. The numeric Id is storage-assigned;
// the URI derives from it when the inbound payload carries no id of its own,
// and is immutable once set. An activity has at most one source: a user or a
// group, never both (uuid.Nil means unset).
type Activity struct {
	Id            int64
	URI           string
	Type          string
	Object        *ActivityObject
	Created       time.Time
	SourceUserId  uuid.UUID
	SourceGroupId uuid.UUID
	TargetPostId  uuid.UUID
}

// ObjectSource carries the original markup a post was authored in.
type ObjectSource struct {
	Content   string `json:"content"`
	MediaType string `json:"mediaType"`
}

// ActivityObject models an ActivityPub activity or object payload: the
// well-known fields are typed, everything else round-trips through Extra so
// extension fields survive store-and-forward unchanged.
//
// Addressing fields (To, Cc, Bto, Bcc, Audience) accept a bare string or a
// list on the wire and normalize to a slice; nil means the field was absent.
type ActivityObject struct {
	Context      any
	ID           string
	Type         string
	Actor        string
	Object       any // string URI or *ActivityObject
	Target       any
	To           []string
	Cc           []string
	Bto          []string
	Bcc          []string
	Audience     []string
	Published    string
	Summary      string
	AttributedTo string
	InReplyTo    any // reference field, see resolver.ExtractReferenceURI
	Content      string
	MediaType    string
	Name         string
	Source       *ObjectSource
	Replies      any
	Deleted      string
	FormerType   string
	Reason       string
	Extra        map[string]any
}

func (o *ActivityObject) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*o = ActivityObject{}
	for key, val := range raw {
		switch key {
		case "@context":
			o.Context = val
		case "id":
			o.ID = asString(val)
		case "type":
			o.Type = asString(val)
		case "actor":
			o.Actor = asString(val)
		case "object":
			o.Object = coerceObject(val)
		case "target":
			o.Target = val
		case "to":
			o.To = asStringList(val)
		case "cc":
			o.Cc = asStringList(val)
		case "bto":
			o.Bto = asStringList(val)
		case "bcc":
			o.Bcc = asStringList(val)
		case "audience":
			o.Audience = asStringList(val)
		case "published":
			o.Published = asString(val)
		case "summary":
			o.Summary = asString(val)
		case "attributedTo":
			o.AttributedTo = asString(val)
		case "inReplyTo":
			o.InReplyTo = val
		case "content":
			o.Content = asString(val)
		case "mediaType":
			o.MediaType = asString(val)
		case "name":
			o.Name = asString(val)
		case "source":
			o.Source = coerceSource(val)
		case "replies":
			o.Replies = val
		case "deleted":
			o.Deleted = asString(val)
		case "formerType":
			o.FormerType = asString(val)
		case "reason":
			o.Reason = asString(val)
		default:
			if o.Extra == nil {
				o.Extra = make(map[string]any)
			}
			o.Extra[key] = val
		}
	}
	return nil
}

func (o *ActivityObject) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(o.Extra)+16)
	for key, val := range o.Extra {
		out[key] = val
	}

	if o.Context != nil {
		out["@context"] = o.Context
	}
	if o.ID != "" {
		out["id"] = o.ID
	}
	if o.Type != "" {
		out["type"] = o.Type
	}
	if o.Actor != "" {
		out["actor"] = o.Actor
	}
	if o.Object != nil {
		out["object"] = o.Object
	}
	if o.Target != nil {
		out["target"] = o.Target
	}
	if o.To != nil {
		out["to"] = o.To
	}
	if o.Cc != nil {
		out["cc"] = o.Cc
	}
	if o.Bto != nil {
		out["bto"] = o.Bto
	}
	if o.Bcc != nil {
		out["bcc"] = o.Bcc
	}
	if o.Audience != nil {
		out["audience"] = o.Audience
	}
	if o.Published != "" {
		out["published"] = o.Published
	}
	if o.Summary != "" {
		out["summary"] = o.Summary
	}
	if o.AttributedTo != "" {
		out["attributedTo"] = o.AttributedTo
	}
	if o.InReplyTo != nil {
		out["inReplyTo"] = o.InReplyTo
	}
	if o.Content != "" {
		out["content"] = o.Content
	}
	if o.MediaType != "" {
		out["mediaType"] = o.MediaType
	}
	if o.Name != "" {
		out["name"] = o.Name
	}
	if o.Source != nil {
		out["source"] = o.Source
	}
	if o.Replies != nil {
		out["replies"] = o.Replies
	}
	if o.Deleted != "" {
		out["deleted"] = o.Deleted
	}
	if o.FormerType != "" {
		out["formerType"] = o.FormerType
	}
	if o.Reason != "" {
		out["reason"] = o.Reason
	}

	return json.Marshal(out)
}

// EmbeddedObject returns the embedded object payload, or nil when the object
// reference is a bare URI or absent.
func (o *ActivityObject) EmbeddedObject() *ActivityObject {
	obj, ok := o.Object.(*ActivityObject)
	if !ok {
		return nil
	}
	return obj
}

// ObjectURI returns the URI of the activity's object: the bare reference if
// the object is a string, the embedded object's id otherwise.
func (o *ActivityObject) ObjectURI() string {
	switch obj := o.Object.(type) {
	case string:
		return obj
	case *ActivityObject:
		return obj.ID
	case map[string]any:
		if id, ok := obj["id"].(string); ok {
			return id
		}
	}
	return ""
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return []string{val}
	case []any:
		list := make([]string, 0, len(val))
		for _, entry := range val {
			if s, ok := entry.(string); ok {
				list = append(list, s)
			}
		}
		return list
	case []string:
		return val
	}
	return []string{}
}

func coerceObject(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	buf, err := json.Marshal(m)
	if err != nil {
		return v
	}
	var obj ActivityObject
	if err := json.Unmarshal(buf, &obj); err != nil {
		return v
	}
	return &obj
}

func coerceSource(v any) *ObjectSource {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return &ObjectSource{
		Content:   asString(m["content"]),
		MediaType: asString(m["mediaType"]),
	}
}
