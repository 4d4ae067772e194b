package db

import (
	"database/sql"
	"log"
)

const (
	// Actor directory
	sqlCreateUsersTable = `CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		server TEXT NOT NULL,
		port INTEGER DEFAULT 0,
		uri TEXT UNIQUE NOT NULL,
		pk_hash TEXT,
		local INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateGroupsTable = `CREATE TABLE IF NOT EXISTS groups (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		server TEXT NOT NULL,
		port INTEGER DEFAULT 0,
		uri TEXT UNIQUE NOT NULL,
		local INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateActorIndices = `
		CREATE INDEX IF NOT EXISTS idx_users_name ON users(name);
		CREATE INDEX IF NOT EXISTS idx_groups_name ON groups(name);
	`

	// Posts and their group memberships
	sqlCreatePostsTable = `CREATE TABLE IF NOT EXISTS posts (
		id TEXT NOT NULL PRIMARY KEY,
		uri TEXT UNIQUE NOT NULL,
		content TEXT,
		source TEXT,
		source_media_type TEXT,
		sender_id TEXT NOT NULL,
		parent_id TEXT,
		deleted INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreatePostGroupsTable = `CREATE TABLE IF NOT EXISTS post_groups (
		post_id TEXT NOT NULL,
		group_id TEXT NOT NULL,
		UNIQUE(post_id, group_id)
	)`

	sqlCreatePostIndices = `
		CREATE INDEX IF NOT EXISTS idx_posts_sender_id ON posts(sender_id);
		CREATE INDEX IF NOT EXISTS idx_posts_parent_id ON posts(parent_id);
		CREATE INDEX IF NOT EXISTS idx_post_groups_group_id ON post_groups(group_id);
	`

	// Follow relationships and likes
	sqlCreateFollowsTable = `CREATE TABLE IF NOT EXISTS follows (
		id TEXT NOT NULL PRIMARY KEY,
		actor_uri TEXT NOT NULL,
		target_uri TEXT NOT NULL,
		uri TEXT,
		accepted INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(actor_uri, target_uri)
	)`

	sqlCreateLikesTable = `CREATE TABLE IF NOT EXISTS likes (
		id TEXT NOT NULL PRIMARY KEY,
		user_id TEXT NOT NULL,
		post_id TEXT NOT NULL,
		uri TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, post_id)
	)`

	sqlCreateFollowIndices = `
		CREATE INDEX IF NOT EXISTS idx_follows_target_uri ON follows(target_uri);
		CREATE INDEX IF NOT EXISTS idx_likes_post_id ON likes(post_id);
	`

	// Activity log. The numeric rowid doubles as the activity's external id,
	// so this table owns id assignment for the whole module.
	sqlCreateActivitiesTable = `CREATE TABLE IF NOT EXISTS activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uri TEXT UNIQUE,
		activity_type TEXT NOT NULL,
		activity_object TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		source_user_id TEXT,
		source_group_id TEXT,
		target_post_id TEXT
	)`

	// Destination sets. The UNIQUE pair turns duplicate deliveries into no-ops.
	sqlCreateActivityDestUsersTable = `CREATE TABLE IF NOT EXISTS activity_dest_users (
		activity_id INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		UNIQUE(activity_id, user_id)
	)`

	sqlCreateActivityDestGroupsTable = `CREATE TABLE IF NOT EXISTS activity_dest_groups (
		activity_id INTEGER NOT NULL,
		group_id TEXT NOT NULL,
		UNIQUE(activity_id, group_id)
	)`

	sqlCreateActivityIndices = `
		CREATE INDEX IF NOT EXISTS idx_activities_type ON activities(activity_type);
		CREATE INDEX IF NOT EXISTS idx_activities_target_post_id ON activities(target_post_id);
		CREATE INDEX IF NOT EXISTS idx_activities_created_at ON activities(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_activity_dest_users_user_id ON activity_dest_users(user_id);
		CREATE INDEX IF NOT EXISTS idx_activity_dest_groups_group_id ON activity_dest_groups(group_id);
	`
)

// RunMigrations creates the full schema. Every statement is idempotent, so
// running it on an existing database is a no-op.
func (db *DB) RunMigrations() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		tables := []struct {
			createSQL string
			name      string
		}{
			{sqlCreateUsersTable, "users"},
			{sqlCreateGroupsTable, "groups"},
			{sqlCreatePostsTable, "posts"},
			{sqlCreatePostGroupsTable, "post_groups"},
			{sqlCreateFollowsTable, "follows"},
			{sqlCreateLikesTable, "likes"},
			{sqlCreateActivitiesTable, "activities"},
			{sqlCreateActivityDestUsersTable, "activity_dest_users"},
			{sqlCreateActivityDestGroupsTable, "activity_dest_groups"},
		}
		for _, table := range tables {
			if err := db.createTableIfNotExists(tx, table.createSQL, table.name); err != nil {
				return err
			}
		}

		indices := []string{
			sqlCreateActorIndices,
			sqlCreatePostIndices,
			sqlCreateFollowIndices,
			sqlCreateActivityIndices,
		}
		for _, indexSQL := range indices {
			if _, err := tx.Exec(indexSQL); err != nil {
				log.Printf("Warning: Failed to create indices: %v", err)
			}
		}

		return nil
	})
}

func (db *DB) createTableIfNotExists(tx *sql.Tx, createSQL string, tableName string) error {
	_, err := tx.Exec(createSQL)
	if err != nil {
		log.Printf("Error creating table %s: %v", tableName, err)
		return err
	}
	log.Printf("Table %s created or already exists", tableName)
	return nil
}
