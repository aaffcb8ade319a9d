package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	maelstrom "github.com/jepsen-io/maelstrom/demo/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crispinlab/snowflake"
	"github.com/crispinlab/snowflake/internal/logging"
)

type reply struct {
	Src  string `json:"src"`
	Dest string `json:"dest"`
	Body struct {
		Type      string `json:"type"`
		ID        int64  `json:"id"`
		InReplyTo int    `json:"in_reply_to"`
	} `json:"body"`
}

func newTestServer(t *testing.T, nodeName string) (*server, *bytes.Buffer) {
	t.Helper()
	n := maelstrom.NewNode()
	out := &bytes.Buffer{}
	n.Stdout = out
	n.Init(nodeName, []string{"n0", nodeName})
	return newServer(n, logging.Discard()), out
}

// fixedClock reports DefaultEpoch+offset on every reading.
func fixedClock(offset int64) snowflake.Clock {
	return func() int64 { return snowflake.DefaultEpoch + offset }
}

func generate(t *testing.T, s *server, msgID int) {
	t.Helper()
	body := fmt.Sprintf(`{"type":"generate","msg_id":%d}`, msgID)
	require.NoError(t, s.handleGenerate(maelstrom.Message{Src: "c1", Dest: s.node.ID(), Body: json.RawMessage(body)}))
}

func readReplies(t *testing.T, out *bytes.Buffer) []reply {
	t.Helper()
	var replies []reply
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		var r reply
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		replies = append(replies, r)
	}
	require.NoError(t, sc.Err())
	return replies
}

func Test_generate_ok(t *testing.T) {
	// arrange
	s, out := newTestServer(t, "n3")
	s.clock = fixedClock(86_400_000)
	// act
	generate(t, s, 1)
	// assert
	replies := readReplies(t, out)
	require.Len(t, replies, 1)
	r := replies[0]
	assert.Equal(t, "n3", r.Src)
	assert.Equal(t, "c1", r.Dest)
	assert.Equal(t, "generate_ok", r.Body.Type)
	assert.Equal(t, 1, r.Body.InReplyTo)
	assert.Equal(t, snowflake.Encode(86_400_000, 3, 0).Int64(), r.Body.ID)
}

func Test_generate_ids_are_exact_on_the_wire(t *testing.T) {
	// arrange
	s, out := newTestServer(t, "n5")
	s.clock = fixedClock(3_000_000_000)
	// act
	for i := 1; i <= 3; i++ {
		generate(t, s, i)
	}
	gen, err := s.generator()
	require.NoError(t, err)
	next, err := gen.NextID()
	require.NoError(t, err)
	// assert
	replies := readReplies(t, out)
	require.Len(t, replies, 3)
	for i, r := range replies {
		assert.Equal(t, i+1, r.Body.InReplyTo)
		assert.Equal(t, snowflake.Encode(3_000_000_000, 5, int64(i)).Int64(), r.Body.ID)
	}
	assert.Equal(t, replies[2].Body.ID+1, next.Int64())
}

func Test_generate_unique_across_nodes(t *testing.T) {
	seen := make(map[int64]string)
	for _, name := range []string{"n0", "n1", "n2"} {
		s, out := newTestServer(t, name)
		for i := 1; i <= 5000; i++ {
			generate(t, s, i)
		}
		replies := readReplies(t, out)
		require.Len(t, replies, 5000)
		for _, r := range replies {
			if prev, dup := seen[r.Body.ID]; dup {
				t.Fatalf("id %d returned by %s and %s", r.Body.ID, prev, name)
			}
			seen[r.Body.ID] = name
		}
	}
	assert.Len(t, seen, 15000)
}

func Test_generator_is_shared(t *testing.T) {
	s, _ := newTestServer(t, "n7")
	a, err := s.generator()
	require.NoError(t, err)
	b, err := s.generator()
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, int64(7), a.NodeID())
}
