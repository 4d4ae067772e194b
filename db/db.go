package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/deemkeen/groupodon/activitypub"
	"github.com/deemkeen/groupodon/domain"
	"github.com/deemkeen/groupodon/util"
	"github.com/google/uuid"
	"log"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
	"time"
)

// DB is the database struct.
type DB struct {
	db *sql.DB
}

var (
	dbInstance *DB
	dbOnce     sync.Once
)

// Users
const (
	sqlInsertUser          = `INSERT INTO users(id, name, server, port, uri, pk_hash, local, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	sqlSelectUserByName    = `SELECT id, name, server, port, uri, pk_hash, local, created_at FROM users WHERE name = ? AND local = 1`
	sqlSelectUserByUri     = `SELECT id, name, server, port, uri, pk_hash, local, created_at FROM users WHERE uri = ?`
	sqlSelectUserById      = `SELECT id, name, server, port, uri, pk_hash, local, created_at FROM users WHERE id = ?`
	sqlSelectAllLocalUsers = `SELECT id, name, server, port, uri, pk_hash, local, created_at FROM users WHERE local = 1 ORDER BY name ASC`
	sqlSelectUserByPkHash  = `SELECT id, name, server, port, uri, pk_hash, local, created_at FROM users WHERE pk_hash = ? AND local = 1`
)

func (db *DB) CreateUser(u *domain.User) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertUser,
			u.Id.String(),
			u.Name,
			u.Server,
			u.Port,
			u.URI,
			u.PkHash,
			u.Local,
			u.CreatedAt,
		)
		return err
	})
}

func (db *DB) ReadUserByName(name string) (error, *domain.User) {
	return db.readUser(db.db.QueryRow(sqlSelectUserByName, name))
}

func (db *DB) ReadUserByUri(uri string) (error, *domain.User) {
	return db.readUser(db.db.QueryRow(sqlSelectUserByUri, uri))
}

func (db *DB) ReadUserById(id uuid.UUID) (error, *domain.User) {
	return db.readUser(db.db.QueryRow(sqlSelectUserById, id.String()))
}

// ReadUserByPkHash resolves the local user owning an SSH public key.
func (db *DB) ReadUserByPkHash(hash string) (error, *domain.User) {
	return db.readUser(db.db.QueryRow(sqlSelectUserByPkHash, hash))
}

func (db *DB) ReadAllLocalUsers() (error, *[]domain.User) {
	rows, err := db.db.Query(sqlSelectAllLocalUsers)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		var idStr string
		if err := rows.Scan(&idStr, &user.Name, &user.Server, &user.Port, &user.URI, &user.PkHash, &user.Local, &user.CreatedAt); err != nil {
			return err, &users
		}
		user.Id, _ = uuid.Parse(idStr)
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return err, &users
	}
	return nil, &users
}

func (db *DB) readUser(row *sql.Row) (error, *domain.User) {
	var user domain.User
	var idStr string
	err := row.Scan(&idStr, &user.Name, &user.Server, &user.Port, &user.URI, &user.PkHash, &user.Local, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	user.Id, _ = uuid.Parse(idStr)
	return nil, &user
}

// Groups
const (
	sqlInsertGroup          = `INSERT INTO groups(id, name, server, port, uri, local, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	sqlSelectGroupByName    = `SELECT id, name, server, port, uri, local, created_at FROM groups WHERE name = ? AND local = 1`
	sqlSelectGroupByUri     = `SELECT id, name, server, port, uri, local, created_at FROM groups WHERE uri = ?`
	sqlSelectAllLocalGroups = `SELECT id, name, server, port, uri, local, created_at FROM groups WHERE local = 1 ORDER BY name ASC`
)

func (db *DB) CreateGroup(g *domain.Group) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertGroup,
			g.Id.String(),
			g.Name,
			g.Server,
			g.Port,
			g.URI,
			g.Local,
			g.CreatedAt,
		)
		return err
	})
}

func (db *DB) ReadGroupByName(name string) (error, *domain.Group) {
	return db.readGroup(db.db.QueryRow(sqlSelectGroupByName, name))
}

func (db *DB) ReadGroupByUri(uri string) (error, *domain.Group) {
	return db.readGroup(db.db.QueryRow(sqlSelectGroupByUri, uri))
}

func (db *DB) ReadAllLocalGroups() (error, *[]domain.Group) {
	rows, err := db.db.Query(sqlSelectAllLocalGroups)
	if err != nil {
		return err, nil
	}
	defer rows.Close()
	return db.collectGroups(rows)
}

func (db *DB) readGroup(row *sql.Row) (error, *domain.Group) {
	var group domain.Group
	var idStr string
	err := row.Scan(&idStr, &group.Name, &group.Server, &group.Port, &group.URI, &group.Local, &group.CreatedAt)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	group.Id, _ = uuid.Parse(idStr)
	return nil, &group
}

func (db *DB) collectGroups(rows *sql.Rows) (error, *[]domain.Group) {
	var groups []domain.Group
	for rows.Next() {
		var group domain.Group
		var idStr string
		if err := rows.Scan(&idStr, &group.Name, &group.Server, &group.Port, &group.URI, &group.Local, &group.CreatedAt); err != nil {
			return err, &groups
		}
		group.Id, _ = uuid.Parse(idStr)
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return err, &groups
	}
	return nil, &groups
}

// Posts
const (
	sqlInsertPost = `INSERT INTO posts(id, uri, content, source, source_media_type, sender_id, parent_id, deleted, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlUpdatePost = `UPDATE posts SET content = ?, source = ?, source_media_type = ? WHERE id = ?`
	sqlDeletePost = `UPDATE posts SET deleted = 1 WHERE id = ?`

	sqlSelectPostByUri       = `SELECT id, uri, content, source, source_media_type, sender_id, parent_id, deleted, created_at FROM posts WHERE uri = ?`
	sqlSelectPostById        = `SELECT id, uri, content, source, source_media_type, sender_id, parent_id, deleted, created_at FROM posts WHERE id = ?`
	sqlSelectRepliesForPost  = `SELECT id, uri, content, source, source_media_type, sender_id, parent_id, deleted, created_at FROM posts WHERE parent_id = ? AND deleted = 0 ORDER BY created_at ASC`
	sqlInsertPostGroup       = `INSERT OR IGNORE INTO post_groups(post_id, group_id) VALUES (?, ?)`
	sqlSelectGroupsForPost   = `SELECT groups.id, groups.name, groups.server, groups.port, groups.uri, groups.local, groups.created_at FROM groups
                                                        INNER JOIN post_groups ON post_groups.group_id = groups.id
                                                        WHERE post_groups.post_id = ?
                                                        ORDER BY groups.name ASC`
	sqlSelectPostsForGroup = `SELECT posts.id, posts.uri, posts.content, posts.source, posts.source_media_type, posts.sender_id, posts.parent_id, posts.deleted, posts.created_at FROM posts
                                                        INNER JOIN post_groups ON post_groups.post_id = posts.id
                                                        WHERE post_groups.group_id = ? AND posts.deleted = 0
                                                        ORDER BY posts.created_at DESC`
)

func (db *DB) CreatePost(p *domain.Post) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertPost,
			p.Id.String(),
			p.URI,
			p.Content,
			p.Source,
			p.SourceMediaType,
			p.SenderId.String(),
			nullableUuid(p.ParentId),
			p.Deleted,
			p.CreatedAt,
		)
		return err
	})
}

func (db *DB) UpdatePost(p *domain.Post) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdatePost, p.Content, p.Source, p.SourceMediaType, p.Id.String())
		return err
	})
}

// SoftDeletePost flips the deleted flag; the row and its reply links stay, so
// the post can still render as a tombstone.
func (db *DB) SoftDeletePost(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeletePost, id.String())
		return err
	})
}

func (db *DB) ReadPostByUri(uri string) (error, *domain.Post) {
	return db.readPost(db.db.QueryRow(sqlSelectPostByUri, uri))
}

func (db *DB) ReadPostById(id uuid.UUID) (error, *domain.Post) {
	return db.readPost(db.db.QueryRow(sqlSelectPostById, id.String()))
}

func (db *DB) ReadRepliesForPost(id uuid.UUID) (error, *[]domain.Post) {
	rows, err := db.db.Query(sqlSelectRepliesForPost, id.String())
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		err, post := db.scanPost(rows)
		if err != nil {
			return err, &posts
		}
		posts = append(posts, *post)
	}
	if err = rows.Err(); err != nil {
		return err, &posts
	}
	return nil, &posts
}

// ReadParentForPost resolves the parent row of a reply. A top-level post has
// no parent and yields nil without error.
func (db *DB) ReadParentForPost(p *domain.Post) (error, *domain.Post) {
	if p.ParentId == uuid.Nil {
		return nil, nil
	}
	return db.ReadPostById(p.ParentId)
}

func (db *DB) AddPostToGroup(postId, groupId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertPostGroup, postId.String(), groupId.String())
		return err
	})
}

func (db *DB) ReadGroupsForPost(postId uuid.UUID) (error, *[]domain.Group) {
	rows, err := db.db.Query(sqlSelectGroupsForPost, postId.String())
	if err != nil {
		return err, nil
	}
	defer rows.Close()
	return db.collectGroups(rows)
}

func (db *DB) ReadPostsForGroup(groupId uuid.UUID) (error, *[]domain.Post) {
	rows, err := db.db.Query(sqlSelectPostsForGroup, groupId.String())
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		err, post := db.scanPost(rows)
		if err != nil {
			return err, &posts
		}
		posts = append(posts, *post)
	}
	if err = rows.Err(); err != nil {
		return err, &posts
	}
	return nil, &posts
}

func (db *DB) readPost(row *sql.Row) (error, *domain.Post) {
	var post domain.Post
	var idStr, senderIdStr string
	var parentIdStr sql.NullString
	err := row.Scan(&idStr, &post.URI, &post.Content, &post.Source, &post.SourceMediaType, &senderIdStr, &parentIdStr, &post.Deleted, &post.CreatedAt)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	post.Id, _ = uuid.Parse(idStr)
	post.SenderId, _ = uuid.Parse(senderIdStr)
	if parentIdStr.Valid {
		post.ParentId, _ = uuid.Parse(parentIdStr.String)
	}
	return nil, &post
}

func (db *DB) scanPost(rows *sql.Rows) (error, *domain.Post) {
	var post domain.Post
	var idStr, senderIdStr string
	var parentIdStr sql.NullString
	if err := rows.Scan(&idStr, &post.URI, &post.Content, &post.Source, &post.SourceMediaType, &senderIdStr, &parentIdStr, &post.Deleted, &post.CreatedAt); err != nil {
		return err, nil
	}
	post.Id, _ = uuid.Parse(idStr)
	post.SenderId, _ = uuid.Parse(senderIdStr)
	if parentIdStr.Valid {
		post.ParentId, _ = uuid.Parse(parentIdStr.String)
	}
	return nil, &post
}

// Follows and Likes
const (
	sqlInsertFollow               = `INSERT OR IGNORE INTO follows(id, actor_uri, target_uri, uri, accepted, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	sqlAcceptFollow               = `UPDATE follows SET accepted = 1 WHERE actor_uri = ? AND target_uri = ?`
	sqlSelectFollowByActorTarget  = `SELECT id, actor_uri, target_uri, uri, accepted, created_at FROM follows WHERE actor_uri = ? AND target_uri = ?`
	sqlSelectFollowersByTargetUri = `SELECT id, actor_uri, target_uri, uri, accepted, created_at FROM follows WHERE target_uri = ? AND accepted = 1 ORDER BY created_at ASC`
	sqlInsertLike                 = `INSERT OR IGNORE INTO likes(id, user_id, post_id, uri, created_at) VALUES (?, ?, ?, ?, ?)`
)

func (db *DB) CreateFollow(f *domain.Follow) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertFollow,
			f.Id.String(),
			f.ActorURI,
			f.TargetURI,
			f.URI,
			f.Accepted,
			f.CreatedAt,
		)
		return err
	})
}

func (db *DB) AcceptFollow(actorURI, targetURI string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlAcceptFollow, actorURI, targetURI)
		return err
	})
}

func (db *DB) ReadFollowByActorAndTarget(actorURI, targetURI string) (error, *domain.Follow) {
	row := db.db.QueryRow(sqlSelectFollowByActorTarget, actorURI, targetURI)
	var follow domain.Follow
	var idStr string
	err := row.Scan(&idStr, &follow.ActorURI, &follow.TargetURI, &follow.URI, &follow.Accepted, &follow.CreatedAt)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	follow.Id, _ = uuid.Parse(idStr)
	return nil, &follow
}

func (db *DB) ReadFollowersByTargetURI(targetURI string) (error, *[]domain.Follow) {
	rows, err := db.db.Query(sqlSelectFollowersByTargetUri, targetURI)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var followers []domain.Follow
	for rows.Next() {
		var follow domain.Follow
		var idStr string
		if err := rows.Scan(&idStr, &follow.ActorURI, &follow.TargetURI, &follow.URI, &follow.Accepted, &follow.CreatedAt); err != nil {
			return err, &followers
		}
		follow.Id, _ = uuid.Parse(idStr)
		followers = append(followers, follow)
	}
	if err = rows.Err(); err != nil {
		return err, &followers
	}
	return nil, &followers
}

func (db *DB) CreateLike(l *domain.Like) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertLike,
			l.Id.String(),
			l.UserId.String(),
			l.PostId.String(),
			l.URI,
			l.CreatedAt,
		)
		return err
	})
}

// Activities
const (
	sqlInsertActivity            = `INSERT INTO activities(uri, activity_type, activity_object, created_at, source_user_id, source_group_id, target_post_id) VALUES (?, ?, ?, ?, ?, ?, ?)`
	sqlUpdateActivityUri         = `UPDATE activities SET uri = ?, activity_object = ? WHERE id = ?`
	sqlSelectActivityByUri       = `SELECT id, uri, activity_type, activity_object, created_at, source_user_id, source_group_id, target_post_id FROM activities WHERE uri = ?`
	sqlSelectActivityById        = `SELECT id, uri, activity_type, activity_object, created_at, source_user_id, source_group_id, target_post_id FROM activities WHERE id = ?`
	sqlSelectActivitiesForPost   = `SELECT id, uri, activity_type, activity_object, created_at, source_user_id, source_group_id, target_post_id FROM activities WHERE target_post_id = ? ORDER BY created_at ASC`
	sqlInsertActivityDestUser    = `INSERT OR IGNORE INTO activity_dest_users(activity_id, user_id) VALUES (?, ?)`
	sqlInsertActivityDestGroup   = `INSERT OR IGNORE INTO activity_dest_groups(activity_id, group_id) VALUES (?, ?)`
	sqlSelectActivityDestUsers   = `SELECT users.id, users.name, users.server, users.port, users.uri, users.pk_hash, users.local, users.created_at FROM users
                                                        INNER JOIN activity_dest_users ON activity_dest_users.user_id = users.id
                                                        WHERE activity_dest_users.activity_id = ?`
	sqlSelectActivityDestGroups = `SELECT groups.id, groups.name, groups.server, groups.port, groups.uri, groups.local, groups.created_at FROM groups
                                                        INNER JOIN activity_dest_groups ON activity_dest_groups.group_id = groups.id
                                                        WHERE activity_dest_groups.activity_id = ?`
	sqlSelectActivitiesBySourceUser  = `SELECT id, uri, activity_type, activity_object, created_at, source_user_id, source_group_id, target_post_id FROM activities WHERE source_user_id = ? ORDER BY created_at DESC`
	sqlSelectActivitiesBySourceGroup = `SELECT id, uri, activity_type, activity_object, created_at, source_user_id, source_group_id, target_post_id FROM activities WHERE source_group_id = ? ORDER BY created_at DESC`
	sqlSelectActivitiesForDestUser   = `SELECT activities.id, activities.uri, activities.activity_type, activities.activity_object, activities.created_at, activities.source_user_id, activities.source_group_id, activities.target_post_id FROM activities
                                                        INNER JOIN activity_dest_users ON activity_dest_users.activity_id = activities.id
                                                        WHERE activity_dest_users.user_id = ?
                                                        ORDER BY activities.created_at DESC`
	sqlSelectActivitiesForDestGroup = `SELECT activities.id, activities.uri, activities.activity_type, activities.activity_object, activities.created_at, activities.source_user_id, activities.source_group_id, activities.target_post_id FROM activities
                                                        INNER JOIN activity_dest_groups ON activity_dest_groups.activity_id = activities.id
                                                        WHERE activity_dest_groups.group_id = ?
                                                        ORDER BY activities.created_at DESC`
	sqlSelectRecentActivities = `SELECT id, uri, activity_type, activity_object, created_at, source_user_id, source_group_id, target_post_id FROM activities ORDER BY created_at DESC LIMIT ?`
)

// SaveActivity persists an activity, assigning its storage id and uri on
// first contact. Saving by an already known uri returns the existing row
// untouched, which makes redelivery of the same activity a no-op. A payload
// without an id gets the /p/{id} uri derived from the fresh storage id
// written back into both the row and the payload.
func (db *DB) SaveActivity(conf *util.AppConfig, a *domain.Activity) (error, *domain.Activity) {
	if a.Id != 0 {
		return db.updateActivityPayload(a)
	}

	if a.URI != "" {
		if err, existing := db.FindActivityByUri(a.URI); err == nil && existing != nil {
			return nil, existing
		}
	}

	// a Create payload may embed an object that got its uri assigned during
	// post creation; carry it over before the payload is frozen
	if a.Object != nil && a.TargetPostId != uuid.Nil {
		if embedded := a.Object.EmbeddedObject(); embedded != nil && embedded.ID == "" {
			if err, post := db.ReadPostById(a.TargetPostId); err == nil && post != nil {
				embedded.ID = post.URI
			}
		}
	}

	payload, err := json.Marshal(a.Object)
	if err != nil {
		return err, nil
	}

	var id int64
	err = db.wrapTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(sqlInsertActivity,
			nullableString(a.URI),
			a.Type,
			string(payload),
			a.Created,
			nullableUuid(a.SourceUserId),
			nullableUuid(a.SourceGroupId),
			nullableUuid(a.TargetPostId),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		// a concurrent save of the same uri can slip between the dedupe
		// read and the insert; the unique index turns the loser into a
		// re-read of the winner's row
		if a.URI != "" && isUniqueConstraintErr(err) {
			if err2, existing := db.FindActivityByUri(a.URI); err2 == nil && existing != nil {
				return nil, existing
			}
		}
		return err, nil
	}
	a.Id = id

	if a.URI == "" {
		a.URI = activitypub.ActivityURI(conf, a.Id)
		if a.Object != nil && a.Object.ID == "" {
			a.Object.ID = a.URI
		}
		payload, err = json.Marshal(a.Object)
		if err != nil {
			return err, nil
		}
		err = db.wrapTransaction(func(tx *sql.Tx) error {
			_, err := tx.Exec(sqlUpdateActivityUri, a.URI, string(payload), a.Id)
			return err
		})
		if err != nil {
			return err, nil
		}
	}

	return nil, a
}

func (db *DB) updateActivityPayload(a *domain.Activity) (error, *domain.Activity) {
	payload, err := json.Marshal(a.Object)
	if err != nil {
		return err, nil
	}
	err = db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateActivityUri, nullableString(a.URI), string(payload), a.Id)
		return err
	})
	if err != nil {
		return err, nil
	}
	return nil, a
}

func (db *DB) FindActivityByUri(uri string) (error, *domain.Activity) {
	row := db.db.QueryRow(sqlSelectActivityByUri, uri)
	return db.scanActivityRow(row.Scan)
}

// FindActivityById looks an activity up by its storage id. This covers rows
// whose uri came in with the payload and therefore never got a /p/{id} alias.
func (db *DB) FindActivityById(id int64) (error, *domain.Activity) {
	row := db.db.QueryRow(sqlSelectActivityById, id)
	return db.scanActivityRow(row.Scan)
}

func (db *DB) ReadActivitiesForPost(postId uuid.UUID) (error, *[]domain.Activity) {
	rows, err := db.db.Query(sqlSelectActivitiesForPost, postId.String())
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		err, activity := db.scanActivityRow(rows.Scan)
		if err != nil {
			return err, &activities
		}
		activities = append(activities, *activity)
	}
	if err = rows.Err(); err != nil {
		return err, &activities
	}
	return nil, &activities
}

func (db *DB) ReadActivitiesBySourceUser(userId uuid.UUID) (error, *[]domain.Activity) {
	return db.queryActivities(sqlSelectActivitiesBySourceUser, userId.String())
}

func (db *DB) ReadActivitiesBySourceGroup(groupId uuid.UUID) (error, *[]domain.Activity) {
	return db.queryActivities(sqlSelectActivitiesBySourceGroup, groupId.String())
}

func (db *DB) ReadActivitiesForDestinationUser(userId uuid.UUID) (error, *[]domain.Activity) {
	return db.queryActivities(sqlSelectActivitiesForDestUser, userId.String())
}

func (db *DB) ReadActivitiesForDestinationGroup(groupId uuid.UUID) (error, *[]domain.Activity) {
	return db.queryActivities(sqlSelectActivitiesForDestGroup, groupId.String())
}

// ReadRecentActivities lists the newest activities across all actors, for the
// admin console's federation log.
func (db *DB) ReadRecentActivities(limit int) (error, *[]domain.Activity) {
	return db.queryActivities(sqlSelectRecentActivities, limit)
}

func (db *DB) queryActivities(query string, args ...any) (error, *[]domain.Activity) {
	rows, err := db.db.Query(query, args...)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		err, activity := db.scanActivityRow(rows.Scan)
		if err != nil {
			return err, &activities
		}
		activities = append(activities, *activity)
	}
	if err = rows.Err(); err != nil {
		return err, &activities
	}
	return nil, &activities
}

func (db *DB) AddActivityDestinationUser(activityId int64, userId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertActivityDestUser, activityId, userId.String())
		return err
	})
}

func (db *DB) AddActivityDestinationGroup(activityId int64, groupId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertActivityDestGroup, activityId, groupId.String())
		return err
	})
}

func (db *DB) ReadActivityDestinationUsers(activityId int64) (error, *[]domain.User) {
	rows, err := db.db.Query(sqlSelectActivityDestUsers, activityId)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		var idStr string
		if err := rows.Scan(&idStr, &user.Name, &user.Server, &user.Port, &user.URI, &user.PkHash, &user.Local, &user.CreatedAt); err != nil {
			return err, &users
		}
		user.Id, _ = uuid.Parse(idStr)
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return err, &users
	}
	return nil, &users
}

func (db *DB) ReadActivityDestinationGroups(activityId int64) (error, *[]domain.Group) {
	rows, err := db.db.Query(sqlSelectActivityDestGroups, activityId)
	if err != nil {
		return err, nil
	}
	defer rows.Close()
	return db.collectGroups(rows)
}

func (db *DB) scanActivityRow(scan func(dest ...any) error) (error, *domain.Activity) {
	var activity domain.Activity
	var uri, srcUserStr, srcGroupStr, targetPostStr sql.NullString
	var payload string
	err := scan(&activity.Id, &uri, &activity.Type, &payload, &activity.Created, &srcUserStr, &srcGroupStr, &targetPostStr)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	activity.URI = uri.String
	if srcUserStr.Valid {
		activity.SourceUserId, _ = uuid.Parse(srcUserStr.String)
	}
	if srcGroupStr.Valid {
		activity.SourceGroupId, _ = uuid.Parse(srcGroupStr.String)
	}
	if targetPostStr.Valid {
		activity.TargetPostId, _ = uuid.Parse(targetPostStr.String)
	}

	var obj domain.ActivityObject
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return err, nil
	}
	activity.Object = &obj
	return nil, &activity
}

// NewDB wraps an already opened connection. Callers own the connection's
// lifecycle and migrations.
func NewDB(sqlDB *sql.DB) *DB {
	return &DB{db: sqlDB}
}

func GetDB() *DB {
	dbOnce.Do(func() {
		// Open database connection
		db, err := sql.Open("sqlite", "database.db")
		if err != nil {
			panic(err)
		}

		// Configure connection pool for concurrent access
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)

		// Try to enable WAL2 mode, fall back to WAL if not supported
		var journalMode string
		err = db.QueryRow("PRAGMA journal_mode=WAL2").Scan(&journalMode)
		if err != nil || journalMode == "delete" {
			// WAL2 not supported, try regular WAL
			err = db.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode)
			if err != nil {
				log.Printf("Warning: Failed to enable WAL mode: %v", err)
			} else {
				log.Printf("Database journal mode: %s (WAL2 not supported, using WAL)", journalMode)
			}
		} else {
			log.Printf("Database journal mode: %s", journalMode)
		}

		// Connection defaults for the concurrent ActivityPub workload
		db.Exec("PRAGMA synchronous = NORMAL")
		db.Exec("PRAGMA cache_size = -64000")
		db.Exec("PRAGMA temp_store = MEMORY")
		db.Exec("PRAGMA busy_timeout = 5000")
		db.Exec("PRAGMA foreign_keys = ON")
		db.Exec("PRAGMA auto_vacuum = INCREMENTAL")

		log.Printf("Database initialized with connection pooling (max 25 connections)")

		dbInstance = &DB{db: db}

		if err2 := dbInstance.RunMigrations(); err2 != nil {
			panic(err2)
		}
	})

	return dbInstance
}

// wrapTransaction runs the given function within a transaction.
func (db *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("error starting transaction: %s", err)
		return err
	}
	for {
		err = f(tx)
		if err != nil {
			serr, ok := err.(*sqlite.Error)
			if ok && serr.Code() == sqlitelib.SQLITE_BUSY {
				continue
			}
			log.Printf("error in transaction: %s", err)
			return err
		}
		err = tx.Commit()
		if err != nil {
			log.Printf("error committing transaction: %s", err)
			return err
		}
		break
	}
	return nil
}

func isUniqueConstraintErr(err error) bool {
	serr, ok := err.(*sqlite.Error)
	if !ok {
		return false
	}
	return serr.Code() == sqlitelib.SQLITE_CONSTRAINT ||
		serr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableUuid(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id.String()
}
