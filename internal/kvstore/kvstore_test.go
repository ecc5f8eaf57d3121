package kvstore

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryStore_Contract(t *testing.T) {
	runContract(t, NewMemoryStore())
}

func TestPostgresStore_Contract(t *testing.T) {
	dsn := os.Getenv("KVSTORE_TEST_DSN")
	if dsn == "" {
		t.Skip("KVSTORE_TEST_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	require.NoError(t, store.Migrate(context.Background()))
	_, err = store.DeletePrefix(context.Background(), "test:")
	require.NoError(t, err)

	runContract(t, store)
}

func runContract(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "test:missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SetJSON(ctx, s, "test:user:1", map[string]string{"name": "Ada"}, 0))
	require.NoError(t, SetJSON(ctx, s, "test:user:2", map[string]string{"name": "Grace"}, time.Hour))
	require.NoError(t, SetJSON(ctx, s, "test:other:1", []int{1, 2}, 0))

	var got map[string]string
	require.NoError(t, GetJSON(ctx, s, "test:user:1", &got))
	assert.Equal(t, "Ada", got["name"])

	entries, err := s.Scan(ctx, "test:user:")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "test:user:1", entries[0].Key)
	assert.Equal(t, "test:user:2", entries[1].Key)

	require.NoError(t, SetJSON(ctx, s, "test:user:1", map[string]string{"name": "Ada L."}, 0))
	require.NoError(t, GetJSON(ctx, s, "test:user:1", &got))
	assert.Equal(t, "Ada L.", got["name"])

	require.NoError(t, s.Expire(ctx, "test:user:1", time.Minute))
	assert.ErrorIs(t, s.Expire(ctx, "test:nope", time.Minute), ErrNotFound)

	require.NoError(t, s.Delete(ctx, "test:user:1", "test:nope"))
	_, err = s.Get(ctx, "test:user:1")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.DeletePrefix(ctx, "test:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entries, err = s.Scan(ctx, "test:")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.SetClock(c.now)

	require.NoError(t, s.Set(ctx, "cache:a", []byte(`1`), time.Minute))
	require.NoError(t, s.Set(ctx, "cache:b", []byte(`2`), 0))

	c.advance(59 * time.Second)
	_, err := s.Get(ctx, "cache:a")
	require.NoError(t, err)

	c.advance(time.Second)
	_, err = s.Get(ctx, "cache:a")
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := s.Scan(ctx, "cache:")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cache:b", entries[0].Key)

	n, err := s.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryStore_ExpireClearsTTL(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.SetClock(c.now)

	require.NoError(t, s.Set(ctx, "session:1", []byte(`{}`), time.Minute))
	require.NoError(t, s.Expire(ctx, "session:1", 0))
	c.advance(time.Hour)

	_, err := s.Get(ctx, "session:1")
	assert.NoError(t, err)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	value := []byte(`"abc"`)
	require.NoError(t, s.Set(ctx, "k", value, 0))
	value[1] = 'z'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(got))
}

func TestGetJSON_DecodeError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "bad", []byte(`not json`), 0))

	var v map[string]interface{}
	err := GetJSON(ctx, s, "bad", &v)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
