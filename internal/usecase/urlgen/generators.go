package urlgen

import (
	"fmt"
	"strings"

	"github.com/quarrylabs/quarry/internal/domain"
)

// ListArchive generates mailing-list archive URLs. Records carrying both a
// list name and a message id resolve to a message permalink; records with
// only an id resolve to the list index page.
type ListArchive struct {
	baseURL string
}

func NewListArchive(baseURL string) *ListArchive {
	return &ListArchive{baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *ListArchive) Generate(md domain.Metadata) Result {
	list, _ := md.Str("list_name")
	id, _ := md.Str("doc_id")
	if id == "" {
		id, _ = md.Str("msg_id")
	}

	if list != "" && id != "" && !strings.Contains(id, list) {
		u := fmt.Sprintf("%s/list/%s/message/%s/", g.baseURL, list, id)
		return Result{URL: &u, Method: "list_archive.message"}
	}

	if id == "" {
		id, _ = md.Str("thread_id")
	}
	if id != "" {
		u := fmt.Sprintf("%s/list/%s/", g.baseURL, id)
		return Result{URL: &u, Method: "list_archive.list"}
	}
	return Result{Method: "unavailable", Reason: "no list or message identifier in metadata"}
}

// ChatPermalink generates chat message permalinks. A non-blank source field
// is taken verbatim; otherwise the permalink is assembled from the team,
// channel, and message timestamp fields.
type ChatPermalink struct {
	baseURL string
}

func NewChatPermalink(baseURL string) *ChatPermalink {
	return &ChatPermalink{baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *ChatPermalink) Generate(md domain.Metadata) Result {
	if src, ok := md.Str("source"); ok {
		if src = strings.TrimSpace(src); src != "" {
			return Result{URL: &src, Method: "metadata.source"}
		}
	}

	team, _ := md.Str("team_id")
	channel, _ := md.Str("channel_id")
	ts, _ := md.Str("doc_id")
	if team == "" || channel == "" || ts == "" {
		return Result{Method: "unavailable", Reason: "missing team, channel, or message id"}
	}

	// Permalink timestamps drop the fractional-second separator.
	u := fmt.Sprintf("%s/%s/%s/p%s", g.baseURL, team, channel, strings.ReplaceAll(ts, ".", ""))
	return Result{URL: &u, Method: "chat_permalink"}
}
