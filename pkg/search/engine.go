package search

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"
)

var ErrClosed = errors.New("search index closed")

type Config struct {
	// 为空时使用内存索引
	IndexPath    string
	QueryTimeout time.Duration
}

// Entry 一条对话记录
type Entry struct {
	ID        string
	UserID    string
	Role      string
	Text      string
	CreatedAt time.Time
}

type Hit struct {
	ID        string   `json:"id"`
	Role      string   `json:"role"`
	Text      string   `json:"text"`
	CreatedAt string   `json:"createdAt"`
	Score     float64  `json:"score"`
	Fragments []string `json:"fragments,omitempty"`
}

// Transcripts 看护端按关键词回看对话
type Transcripts struct {
	cfg    Config
	index  bleve.Index
	mu     sync.RWMutex
	closed bool
}

func Open(cfg Config) (*Transcripts, error) {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 3 * time.Second
	}
	m := BuildIndexMapping()

	var (
		idx bleve.Index
		err error
	)
	switch _, statErr := os.Stat(cfg.IndexPath); {
	case cfg.IndexPath == "":
		idx, err = bleve.NewMemOnly(m)
	case statErr == nil:
		idx, err = bleve.Open(cfg.IndexPath)
	case os.IsNotExist(statErr):
		idx, err = bleve.New(cfg.IndexPath, m)
	default:
		err = statErr
	}
	if err != nil {
		return nil, err
	}
	return &Transcripts{cfg: cfg, index: idx}, nil
}

func (t *Transcripts) guard() error {
	if t.closed {
		return ErrClosed
	}
	return nil
}

func (t *Transcripts) Add(ctx context.Context, e Entry) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if err := t.guard(); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return t.index.Index(e.ID, map[string]any{
		"userId":    e.UserID,
		"role":      e.Role,
		"text":      e.Text,
		"createdAt": e.CreatedAt.UTC(),
	})
}

// Search 只在 userID 的记录里查，按相关度、时间倒序
func (t *Transcripts) Search(ctx context.Context, userID, query string, size int) ([]Hit, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if err := t.guard(); err != nil {
		return nil, err
	}
	if size <= 0 || size > 50 {
		size = 10
	}

	user := bleve.NewTermQuery(userID)
	user.SetField("userId")
	text := bleve.NewMatchQuery(query)
	text.SetField("text")

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(user, text), size, 0, false)
	req.Fields = []string{"role", "text", "createdAt"}
	req.Highlight = bleve.NewHighlight()
	req.SortBy([]string{"-_score", "-createdAt"})

	ctx, cancel := context.WithTimeout(ctx, t.cfg.QueryTimeout)
	defer cancel()
	res, err := t.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score, Fragments: h.Fragments["text"]}
		hit.Role, _ = h.Fields["role"].(string)
		hit.Text, _ = h.Fields["text"].(string)
		hit.CreatedAt, _ = h.Fields["createdAt"].(string)
		hits = append(hits, hit)
	}
	return hits, nil
}

func (t *Transcripts) Count() (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if err := t.guard(); err != nil {
		return 0, err
	}
	return t.index.DocCount()
}

func (t *Transcripts) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.index.Close()
}
