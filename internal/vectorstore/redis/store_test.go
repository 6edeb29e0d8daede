package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"
)

// --- Mocks ---

type fixedEmbedder struct {
	vec []float32
	err error
}

func (f fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return f.vec, f.err
}

// --- Tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c, fixedEmbedder{})
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, fixedEmbedder{})
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnsureCollection_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c, fixedEmbedder{})
	if err := s.EnsureCollection(context.Background(), "doc_policy_ab12cd34", nil); err != nil {
		t.Fatalf("existing index must not error: %v", err)
	}
}

func TestEnsureCollection_StoresMetadata(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisString("OK")))
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "HSET" && cmd[1] == "docdex:meta:doc_policy_ab12cd34"
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c, fixedEmbedder{})
	meta := map[string]string{"source": "policy.txt"}
	if err := s.EnsureCollection(context.Background(), "doc_policy_ab12cd34", meta); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAddChunks_LengthMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	s := NewStoreForTest(c, fixedEmbedder{vec: []float32{1, 0, 0, 0}})
	err := s.AddChunks(context.Background(), "coll", []string{"a", "b"}, []string{"0"})
	if err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
}

func TestAddChunks_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(2)),
			mock.Result(mock.RedisInt64(2)),
		})

	s := NewStoreForTest(c, fixedEmbedder{vec: []float32{1, 0, 0, 0}})
	err := s.AddChunks(context.Background(), "coll", []string{"chunk a", "chunk b"}, []string{"0", "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAddChunks_EmbedError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	s := NewStoreForTest(c, fixedEmbedder{err: errors.New("quota exceeded")})
	err := s.AddChunks(context.Background(), "coll", []string{"chunk"}, []string{"0"})
	if err == nil {
		t.Fatal("expected embed error to propagate")
	}
}

func TestQuery_ParsesHits(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[1] == "docdex:idx:coll"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("docdex:chunk:coll:0"),
			mock.RedisArray(
				mock.RedisString("text"), mock.RedisString("room rent is capped"),
				mock.RedisString("__vector_score"), mock.RedisString("0.12"),
			),
			mock.RedisString("docdex:chunk:coll:1"),
			mock.RedisArray(
				mock.RedisString("text"), mock.RedisString("icu charges"),
				mock.RedisString("__vector_score"), mock.RedisString("0.37"),
			),
		)))

	s := NewStoreForTest(c, fixedEmbedder{vec: []float32{1, 0, 0, 0}})
	hits, err := s.Query(context.Background(), "coll", "room rent", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].Text != "room rent is capped" || hits[0].Distance != 0.12 {
		t.Errorf("hit 0 = %+v", hits[0])
	}
	if hits[1].Text != "icu charges" || hits[1].Distance != 0.37 {
		t.Errorf("hit 1 = %+v", hits[1])
	}
}

func TestQuery_NoResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c, fixedEmbedder{vec: []float32{1, 0, 0, 0}})
	hits, err := s.Query(context.Background(), "coll", "anything", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %d, want 0", len(hits))
	}
}

func TestQuery_InvalidK(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	s := NewStoreForTest(c, fixedEmbedder{vec: []float32{1, 0, 0, 0}})
	if _, err := s.Query(context.Background(), "coll", "q", 0); err == nil {
		t.Fatal("expected error for k=0")
	}
}

func TestDeleteCollection_UnknownIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.DROPINDEX"
		})).
		Return(mock.Result(mock.RedisError("Unknown Index name")))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "docdex:meta:coll")).
		Return(mock.Result(mock.RedisInt64(0)))

	s := NewStoreForTest(c, fixedEmbedder{})
	if err := s.DeleteCollection(context.Background(), "coll"); err != nil {
		t.Fatalf("missing index must not error: %v", err)
	}
}

func TestListCollections_FiltersPrefix(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT._LIST")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisString("docdex:idx:doc_a_11111111"),
			mock.RedisString("other:idx:unrelated"),
			mock.RedisString("docdex:idx:doc_b_22222222"),
		)))

	s := NewStoreForTest(c, fixedEmbedder{})
	names, err := s.ListCollections(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"doc_a_11111111", "doc_b_22222222"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestVectorToBytes_LittleEndian(t *testing.T) {
	got := vectorToBytes([]float32{1.5, -2.25})
	if len(got) != 8 {
		t.Fatalf("length = %d, want 8", len(got))
	}

	first := math.Float32frombits(binary.LittleEndian.Uint32([]byte(got[:4])))
	second := math.Float32frombits(binary.LittleEndian.Uint32([]byte(got[4:])))
	if first != 1.5 || second != -2.25 {
		t.Errorf("decoded %v, %v; want 1.5, -2.25", first, second)
	}
}

func TestParseKNNResult_SkipsBrokenEntries(t *testing.T) {
	raw := []rueidis.RedisMessage{
		mock.RedisInt64(2),
		mock.RedisString("key1"),
		mock.RedisArray(
			mock.RedisString("text"), mock.RedisString("good"),
			mock.RedisString("__vector_score"), mock.RedisString("0.5"),
		),
		mock.RedisString("key2"),
		mock.RedisString("not an array"),
	}

	hits, err := parseKNNResult(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].Text != "good" {
		t.Errorf("hits = %+v", hits)
	}
}
