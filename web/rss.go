package web

import (
	"fmt"
	"time"

	"github.com/deemkeen/groupodon/activitypub"
	"github.com/deemkeen/groupodon/util"
	"github.com/gorilla/feeds"
)

const rssTitleLength = 60

// GetGroupRSS renders the group's timeline as an RSS feed. Deleted posts are
// already filtered out by the store.
func GetGroupRSS(conf *util.AppConfig, store activitypub.Store, name string) (error, string) {
	err, group := store.ReadGroupByName(name)
	if err != nil || group == nil {
		return fmt.Errorf("error retrieving group %s", name), ""
	}

	err, posts := store.ReadPostsForGroup(group.Id)
	if err != nil {
		return fmt.Errorf("error retrieving posts for group %s", name), ""
	}

	groupURI := activitypub.GroupURI(conf, group)
	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s@%s", group.Name, conf.Conf.ServerAddress),
		Link:        &feeds.Link{Href: groupURI},
		Description: fmt.Sprintf("posts addressed to the %s group", group.Name),
		Author:      &feeds.Author{Name: group.Name, Email: fmt.Sprintf("%s@%s", group.Name, util.Name)},
		Created:     time.Now(),
	}

	var feedItems []*feeds.Item
	for _, post := range *posts {
		author := "unknown"
		if err, sender := store.ReadUserById(post.SenderId); err == nil && sender != nil {
			author = sender.Name
		}
		feedItems = append(feedItems,
			&feeds.Item{
				Id:      post.Id.String(),
				Title:   feedTitle(post.Content, post.CreatedAt),
				Link:    &feeds.Link{Href: post.URI},
				Content: post.Content,
				Author:  &feeds.Author{Name: author, Email: fmt.Sprintf("%s@%s", author, util.Name)},
				Created: post.CreatedAt,
			})
	}

	feed.Items = feedItems
	rss, err := feed.ToRss()
	if err != nil {
		return err, ""
	}
	return nil, rss
}

// feedTitle derives an item title from the post content, falling back to the
// creation timestamp for empty posts.
func feedTitle(content string, createdAt time.Time) string {
	if content == "" {
		return createdAt.Format(util.DateTimeFormat())
	}
	runes := []rune(content)
	if len(runes) > rssTitleLength {
		return string(runes[:rssTitleLength]) + "…"
	}
	return content
}
