package activitypub

import (
	"sync"
	"time"

	"github.com/deemkeen/groupodon/domain"
	"github.com/deemkeen/groupodon/util"
	"github.com/google/uuid"
)

// fakeStore is an in-memory Store. Delivery fans out concurrently, so every
// method takes the lock.
type fakeStore struct {
	mu             sync.Mutex
	users          map[string]*domain.User
	groups         map[string]*domain.Group
	posts          map[string]*domain.Post
	postGroupLinks []postGroupLink
	follows        []*domain.Follow
	likes          []*domain.Like
	activities     []*domain.Activity
	destUsers      map[int64][]uuid.UUID
	destGroups     map[int64][]uuid.UUID
}

type postGroupLink struct {
	postId  uuid.UUID
	groupId uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[string]*domain.User),
		groups:     make(map[string]*domain.Group),
		posts:      make(map[string]*domain.Post),
		destUsers:  make(map[int64][]uuid.UUID),
		destGroups: make(map[int64][]uuid.UUID),
	}
}

func (s *fakeStore) addLocalUser(conf *util.AppConfig, name string) *domain.User {
	user := &domain.User{
		Id:        uuid.New(),
		Name:      name,
		Server:    conf.Conf.ServerAddress,
		URI:       BuildActorURI(conf, name, KindUser),
		Local:     true,
		CreatedAt: time.Now(),
	}
	s.CreateUser(user)
	return user
}

func (s *fakeStore) addLocalGroup(conf *util.AppConfig, name string) *domain.Group {
	group := &domain.Group{
		Id:        uuid.New(),
		Name:      name,
		Server:    conf.Conf.ServerAddress,
		URI:       BuildActorURI(conf, name, KindGroup),
		Local:     true,
		CreatedAt: time.Now(),
	}
	s.CreateGroup(group)
	return group
}

func (s *fakeStore) ReadUserByName(name string) (error, *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Name == name && user.Local {
			return nil, user
		}
	}
	return domain.ErrNotFound, nil
}

func (s *fakeStore) ReadUserByUri(uri string) (error, *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[uri]; ok {
		return nil, user
	}
	return domain.ErrNotFound, nil
}

func (s *fakeStore) ReadUserById(id uuid.UUID) (error, *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Id == id {
			return nil, user
		}
	}
	return domain.ErrNotFound, nil
}

func (s *fakeStore) CreateUser(u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.URI] = u
	return nil
}

func (s *fakeStore) ReadGroupByName(name string) (error, *domain.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, group := range s.groups {
		if group.Name == name && group.Local {
			return nil, group
		}
	}
	return domain.ErrNotFound, nil
}

func (s *fakeStore) ReadGroupByUri(uri string) (error, *domain.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if group, ok := s.groups[uri]; ok {
		return nil, group
	}
	return domain.ErrNotFound, nil
}

func (s *fakeStore) CreateGroup(g *domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.URI] = g
	return nil
}

func (s *fakeStore) CreatePost(p *domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[p.URI] = p
	return nil
}

func (s *fakeStore) UpdatePost(p *domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[p.URI] = p
	return nil
}

func (s *fakeStore) ReadPostByUri(uri string) (error, *domain.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if post, ok := s.posts[uri]; ok {
		return nil, post
	}
	return domain.ErrNotFound, nil
}

func (s *fakeStore) SoftDeletePost(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, post := range s.posts {
		if post.Id == id {
			post.Deleted = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *fakeStore) ReadRepliesForPost(id uuid.UUID) (error, *[]domain.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var replies []domain.Post
	for _, post := range s.posts {
		if post.ParentId == id && !post.Deleted {
			replies = append(replies, *post)
		}
	}
	return nil, &replies
}

func (s *fakeStore) ReadParentForPost(p *domain.Post) (error, *domain.Post) {
	if p.ParentId == uuid.Nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, post := range s.posts {
		if post.Id == p.ParentId {
			return nil, post
		}
	}
	return domain.ErrNotFound, nil
}

func (s *fakeStore) AddPostToGroup(postId, groupId uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, link := range s.postGroupLinks {
		if link.postId == postId && link.groupId == groupId {
			return nil
		}
	}
	s.postGroupLinks = append(s.postGroupLinks, postGroupLink{postId, groupId})
	return nil
}

func (s *fakeStore) ReadGroupsForPost(postId uuid.UUID) (error, *[]domain.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var groups []domain.Group
	for _, link := range s.postGroupLinks {
		if link.postId != postId {
			continue
		}
		for _, group := range s.groups {
			if group.Id == link.groupId {
				groups = append(groups, *group)
			}
		}
	}
	return nil, &groups
}

func (s *fakeStore) ReadPostsForGroup(groupId uuid.UUID) (error, *[]domain.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var posts []domain.Post
	for _, link := range s.postGroupLinks {
		if link.groupId != groupId {
			continue
		}
		for _, post := range s.posts {
			if post.Id == link.postId && !post.Deleted {
				posts = append(posts, *post)
			}
		}
	}
	return nil, &posts
}

func (s *fakeStore) CreateFollow(f *domain.Follow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, follow := range s.follows {
		if follow.ActorURI == f.ActorURI && follow.TargetURI == f.TargetURI {
			return nil
		}
	}
	s.follows = append(s.follows, f)
	return nil
}

func (s *fakeStore) AcceptFollow(actorURI, targetURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, follow := range s.follows {
		if follow.ActorURI == actorURI && follow.TargetURI == targetURI {
			follow.Accepted = true
		}
	}
	return nil
}

func (s *fakeStore) ReadFollowByActorAndTarget(actorURI, targetURI string) (error, *domain.Follow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, follow := range s.follows {
		if follow.ActorURI == actorURI && follow.TargetURI == targetURI {
			return nil, follow
		}
	}
	return domain.ErrNotFound, nil
}

func (s *fakeStore) ReadFollowersByTargetURI(targetURI string) (error, *[]domain.Follow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var followers []domain.Follow
	for _, follow := range s.follows {
		if follow.TargetURI == targetURI && follow.Accepted {
			followers = append(followers, *follow)
		}
	}
	return nil, &followers
}

func (s *fakeStore) CreateLike(l *domain.Like) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, like := range s.likes {
		if like.UserId == l.UserId && like.PostId == l.PostId {
			return nil
		}
	}
	s.likes = append(s.likes, l)
	return nil
}

func (s *fakeStore) SaveActivity(conf *util.AppConfig, a *domain.Activity) (error, *domain.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.Id != 0 {
		return nil, a
	}
	if a.URI != "" {
		for _, existing := range s.activities {
			if existing.URI == a.URI {
				return nil, existing
			}
		}
	}

	if a.Object != nil && a.TargetPostId != uuid.Nil {
		if embedded := a.Object.EmbeddedObject(); embedded != nil && embedded.ID == "" {
			for _, post := range s.posts {
				if post.Id == a.TargetPostId {
					embedded.ID = post.URI
					break
				}
			}
		}
	}

	s.activities = append(s.activities, a)
	a.Id = int64(len(s.activities))
	if a.URI == "" {
		a.URI = ActivityURI(conf, a.Id)
		if a.Object != nil && a.Object.ID == "" {
			a.Object.ID = a.URI
		}
	}
	return nil, a
}

func (s *fakeStore) FindActivityByUri(uri string) (error, *domain.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, activity := range s.activities {
		if activity.URI == uri {
			return nil, activity
		}
	}
	return domain.ErrNotFound, nil
}

func (s *fakeStore) FindActivityById(id int64) (error, *domain.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, activity := range s.activities {
		if activity.Id == id {
			return nil, activity
		}
	}
	return domain.ErrNotFound, nil
}

func (s *fakeStore) ReadActivitiesForPost(postId uuid.UUID) (error, *[]domain.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var activities []domain.Activity
	for _, activity := range s.activities {
		if activity.TargetPostId == postId {
			activities = append(activities, *activity)
		}
	}
	return nil, &activities
}

func (s *fakeStore) ReadActivitiesBySourceUser(userId uuid.UUID) (error, *[]domain.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var activities []domain.Activity
	for _, activity := range s.activities {
		if activity.SourceUserId == userId {
			activities = append(activities, *activity)
		}
	}
	return nil, &activities
}

func (s *fakeStore) ReadActivitiesBySourceGroup(groupId uuid.UUID) (error, *[]domain.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var activities []domain.Activity
	for _, activity := range s.activities {
		if activity.SourceGroupId == groupId {
			activities = append(activities, *activity)
		}
	}
	return nil, &activities
}

func (s *fakeStore) ReadActivitiesForDestinationUser(userId uuid.UUID) (error, *[]domain.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var activities []domain.Activity
	for _, activity := range s.activities {
		for _, id := range s.destUsers[activity.Id] {
			if id == userId {
				activities = append(activities, *activity)
			}
		}
	}
	return nil, &activities
}

func (s *fakeStore) ReadActivitiesForDestinationGroup(groupId uuid.UUID) (error, *[]domain.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var activities []domain.Activity
	for _, activity := range s.activities {
		for _, id := range s.destGroups[activity.Id] {
			if id == groupId {
				activities = append(activities, *activity)
			}
		}
	}
	return nil, &activities
}

func (s *fakeStore) AddActivityDestinationUser(activityId int64, userId uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.destUsers[activityId] {
		if id == userId {
			return nil
		}
	}
	s.destUsers[activityId] = append(s.destUsers[activityId], userId)
	return nil
}

func (s *fakeStore) AddActivityDestinationGroup(activityId int64, groupId uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.destGroups[activityId] {
		if id == groupId {
			return nil
		}
	}
	s.destGroups[activityId] = append(s.destGroups[activityId], groupId)
	return nil
}

func (s *fakeStore) ReadActivityDestinationUsers(activityId int64) (error, *[]domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []domain.User
	for _, id := range s.destUsers[activityId] {
		for _, user := range s.users {
			if user.Id == id {
				users = append(users, *user)
			}
		}
	}
	return nil, &users
}

func (s *fakeStore) ReadActivityDestinationGroups(activityId int64) (error, *[]domain.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var groups []domain.Group
	for _, id := range s.destGroups[activityId] {
		for _, group := range s.groups {
			if group.Id == id {
				groups = append(groups, *group)
			}
		}
	}
	return nil, &groups
}

// fakeTransport records posted payloads and can be told to fail per inbox.
type fakeTransport struct {
	mu     sync.Mutex
	posts  map[string][][]byte
	errors map[string]error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		posts:  make(map[string][][]byte),
		errors: make(map[string]error),
	}
}

func (t *fakeTransport) failFor(url string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors[url] = err
}

func (t *fakeTransport) Post(url string, body []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err, ok := t.errors[url]; ok {
		return err
	}
	t.posts[url] = append(t.posts[url], body)
	return nil
}

func (t *fakeTransport) postCount(url string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.posts[url])
}

func (t *fakeTransport) totalPosts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0
	for _, bodies := range t.posts {
		total += len(bodies)
	}
	return total
}
