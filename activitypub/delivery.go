package activitypub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/deemkeen/groupodon/domain"
	"github.com/deemkeen/groupodon/util"
	"github.com/google/uuid"
)

// Transport posts an activity payload to an inbox url. Failures carry a
// status code and message via domain.DeliveryError.
type Transport interface {
	Post(url string, body []byte) error
}

// HTTPTransport is the real Transport over net/http.
type HTTPTransport struct {
	Client *http.Client
}

func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (t *HTTPTransport) Post(url string, body []byte) error {
	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/activity+json")
	req.Header.Set("Accept", "application/activity+json")
	req.Header.Set("User-Agent", util.Name+"/"+util.GetVersion()+" ActivityPub")
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))

	resp, err := t.Client.Do(req)
	if err != nil {
		return &domain.DeliveryError{Status: http.StatusBadGateway, Message: err.Error()}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.DeliveryError{Status: resp.StatusCode, Message: fmt.Sprintf("remote server returned status %d", resp.StatusCode)}
	}

	return nil
}

// Delivery resolves an activity's recipient set and fans the payload out to
// the matching inboxes. It only ever reads stored activities; destination
// bookkeeping goes back through the store from the inbox handlers.
type Delivery struct {
	Conf      *util.AppConfig
	Store     Store
	Transport Transport
}

func NewDelivery(conf *util.AppConfig, store Store, transport Transport) *Delivery {
	return &Delivery{Conf: conf, Store: store, Transport: transport}
}

// CollectTargets unions the addressing fields of an activity payload into a
// deduplicated target list, preserving first-seen order. Each field may be
// absent, a single string or a list.
func CollectTargets(obj *domain.ActivityObject) []string {
	seen := make(map[string]bool)
	targets := make([]string, 0)

	for _, field := range [][]string{obj.To, obj.Cc, obj.Bto, obj.Bcc, obj.Audience} {
		for _, uri := range field {
			if uri == "" || seen[uri] {
				continue
			}
			seen[uri] = true
			targets = append(targets, uri)
		}
	}

	return targets
}

// Deliver fans the activity out to every addressed recipient concurrently
// and joins before returning. The public sentinel needs no recipient record
// and is skipped; followers collections expand to the follower set. A failed
// branch never stops the others, but the first failure surfaces as the
// aggregate error. On success the original payload is returned.
func (d *Delivery) Deliver(a *domain.Activity) (error, *domain.ActivityObject) {
	targets := CollectTargets(a.Object)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for _, target := range targets {
		if target == domain.PublicAddress {
			continue
		}

		if followersOf, ok := strings.CutSuffix(target, "/followers"); ok {
			err, followers := d.Store.ReadFollowersByTargetURI(followersOf)
			if err != nil {
				record(fmt.Errorf("failed to expand followers of %s: %w", followersOf, err))
				continue
			}
			for _, follower := range *followers {
				wg.Add(1)
				go func(uri string) {
					defer wg.Done()
					record(d.deliverToTarget(a, uri))
				}(follower.ActorURI)
			}
			continue
		}

		wg.Add(1)
		go func(uri string) {
			defer wg.Done()
			record(d.deliverToTarget(a, uri))
		}(target)
	}

	wg.Wait()

	if firstErr != nil {
		return firstErr, nil
	}
	return nil, a.Object
}

// DeliverTo is the directed variant used for handshakes such as Accept
// replies: every explicit target is resolved and posted to, concurrently.
// Only the public sentinel is skipped.
func (d *Delivery) DeliverTo(a *domain.Activity, targets []string) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, target := range targets {
		if target == domain.PublicAddress {
			continue
		}
		wg.Add(1)
		go func(uri string) {
			defer wg.Done()
			err := d.deliverDirect(a, uri)
			if err == nil {
				return
			}
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}(target)
	}

	wg.Wait()
	return firstErr
}

func (d *Delivery) deliverToTarget(a *domain.Activity, target string) error {
	ref, kind := ParseActor(target)
	switch kind {
	case KindGroup:
		return d.deliverToGroup(a, target, ref)
	case KindUser:
		return d.deliverToUser(a, target, ref)
	default:
		return fmt.Errorf("%w: cannot resolve delivery target %s", domain.ErrInvalidActivity, target)
	}
}

func (d *Delivery) deliverToGroup(a *domain.Activity, target string, ref ActorRef) error {
	err, group := getOrCreateGroup(d.Conf, d.Store, target, ref)
	if err != nil {
		return err
	}

	// idempotent re-delivery guard
	err, dests := d.Store.ReadActivityDestinationGroups(a.Id)
	if err == nil && dests != nil {
		for i := range *dests {
			if (*dests)[i].Id == group.Id {
				log.Printf("Delivery: Group %s already received activity %d, skipping", group.Name, a.Id)
				return nil
			}
		}
	}

	return d.postToInbox(a, target, group.Local)
}

func (d *Delivery) deliverToUser(a *domain.Activity, target string, ref ActorRef) error {
	err, user := getOrCreateUser(d.Conf, d.Store, target, ref)
	if err != nil {
		return err
	}

	err, dests := d.Store.ReadActivityDestinationUsers(a.Id)
	if err == nil && dests != nil {
		for i := range *dests {
			if (*dests)[i].Id == user.Id {
				log.Printf("Delivery: User %s already received activity %d, skipping", user.Name, a.Id)
				return nil
			}
		}
	}

	return d.postToInbox(a, target, user.Local)
}

func (d *Delivery) deliverDirect(a *domain.Activity, target string) error {
	ref, kind := ParseActor(target)
	if kind == KindInvalid {
		return fmt.Errorf("%w: malformed delivery target %s", domain.ErrInvalidActivity, target)
	}

	local := IsLocalRef(d.Conf, ref)
	if local {
		// confirm the actor exists before posting at it
		var err error
		if kind == KindUser {
			err, _ = d.Store.ReadUserByName(ref.Name)
		} else {
			err, _ = d.Store.ReadGroupByName(ref.Name)
		}
		if err != nil {
			return fmt.Errorf("local actor %s: %w", target, domain.ErrNotFound)
		}
	}

	return d.postToInbox(a, target, local)
}

func (d *Delivery) postToInbox(a *domain.Activity, actorURI string, local bool) error {
	if !local && !d.Conf.Conf.Federating {
		return fmt.Errorf("%w: federated delivery to %s (federation disabled)", domain.ErrNotImplemented, actorURI)
	}

	body, err := json.Marshal(a.Object)
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}

	inbox := strings.TrimSuffix(actorURI, "/") + "/inbox"
	if err := d.Transport.Post(inbox, body); err != nil {
		return err
	}

	log.Printf("Delivery: Sent %s to %s", a.Type, inbox)
	return nil
}

// getOrCreateGroup resolves a group record by uri, lazily materializing
// remote groups on first contact.
func getOrCreateGroup(conf *util.AppConfig, store Store, uri string, ref ActorRef) (error, *domain.Group) {
	err, group := store.ReadGroupByUri(uri)
	if err == nil && group != nil {
		return nil, group
	}

	group = &domain.Group{
		Id:        uuid.New(),
		Name:      ref.Name,
		Server:    ref.Server,
		Port:      ref.Port,
		URI:       uri,
		Local:     IsLocalRef(conf, ref),
		CreatedAt: time.Now(),
	}
	if err := store.CreateGroup(group); err != nil {
		return fmt.Errorf("failed to materialize group %s: %w", uri, err), nil
	}
	return nil, group
}

// getOrCreateUser mirrors getOrCreateGroup for user actors.
func getOrCreateUser(conf *util.AppConfig, store Store, uri string, ref ActorRef) (error, *domain.User) {
	err, user := store.ReadUserByUri(uri)
	if err == nil && user != nil {
		return nil, user
	}

	user = &domain.User{
		Id:        uuid.New(),
		Name:      ref.Name,
		Server:    ref.Server,
		Port:      ref.Port,
		URI:       uri,
		Local:     IsLocalRef(conf, ref),
		CreatedAt: time.Now(),
	}
	if err := store.CreateUser(user); err != nil {
		return fmt.Errorf("failed to materialize user %s: %w", uri, err), nil
	}
	return nil, user
}
