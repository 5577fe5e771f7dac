package loadgen

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

// album mirrors the payload the default scenario posts.
type album struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Artist string  `json:"artist"`
	Price  float64 `json:"price"`
}

// albumStore is an in-memory stand-in for the album API under test. It
// rejects duplicate ids with 409 the way the real service does.
type albumStore struct {
	mu     sync.Mutex
	albums []album
}

func (s *albumStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.albums)
}

func (s *albumStore) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.GET("/albums", func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.JSON(http.StatusOK, s.albums)
	})
	r.POST("/albums", func(c *gin.Context) {
		var a album
		if err := c.BindJSON(&a); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid JSON body"})
			return
		}
		if a.ID == "" || a.Title == "" || a.Artist == "" || a.Price <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "missing/invalid fields"})
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, existing := range s.albums {
			if existing.ID == a.ID {
				c.JSON(http.StatusConflict, gin.H{"message": "album with that id already exists"})
				return
			}
		}
		s.albums = append(s.albums, a)
		c.JSON(http.StatusCreated, a)
	})
	return r
}

func newAlbumServer(t *testing.T) (*albumStore, *httptest.Server) {
	t.Helper()
	store := &albumStore{albums: []album{
		{ID: "1", Title: "Blue Train", Artist: "John Coltrane", Price: 56.99},
	}}
	srv := httptest.NewServer(store.router())
	t.Cleanup(srv.Close)
	return store, srv
}

// collector is a Recorder that keeps every outcome.
type collector struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (c *collector) Record(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
}

func (c *collector) all() []Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Outcome(nil), c.outcomes...)
}
