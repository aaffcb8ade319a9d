// Command maelstrom-unique-ids is a Maelstrom node for the unique-ids
// workload (https://fly.io/dist-sys/2/). Each node answers "generate" with an
// ID from a snowflake generator whose node id comes from the Maelstrom node
// name, so n0..n1023 never collide.
//
//	maelstrom test -w unique-ids --bin ./maelstrom-unique-ids --node-count 3 \
//	    --time-limit 30 --rate 1000 --availability total --nemesis partition
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync"

	maelstrom "github.com/jepsen-io/maelstrom/demo/go"

	"github.com/crispinlab/snowflake"
	"github.com/crispinlab/snowflake/internal/logging"
)

type server struct {
	node   *maelstrom.Node
	logger *slog.Logger
	clock  snowflake.Clock // nil means the system clock

	once sync.Once
	gen  *snowflake.Generator
	err  error
}

func newServer(n *maelstrom.Node, logger *slog.Logger) *server {
	s := &server{node: n, logger: logger}
	n.Handle("generate", s.handleGenerate)
	return s
}

// generator is built on first use because the node name is only known once
// Maelstrom has sent init.
func (s *server) generator() (*snowflake.Generator, error) {
	s.once.Do(func() {
		cfg := snowflake.DefaultConfig(snowflake.NodeIDFromName(s.node.ID()))
		cfg.Logger = s.logger.With("node", s.node.ID())
		cfg.Clock = s.clock
		s.gen, s.err = snowflake.NewWithConfig(cfg)
	})
	return s.gen, s.err
}

func (s *server) handleGenerate(msg maelstrom.Message) error {
	gen, err := s.generator()
	if err != nil {
		return maelstrom.NewRPCError(maelstrom.Crash, err.Error())
	}
	id, err := gen.NextID()
	if err != nil {
		return maelstrom.NewRPCError(maelstrom.TemporarilyUnavailable, fmt.Sprintf("generate: %v", err))
	}
	return s.reply(msg, map[string]any{
		"type": "generate_ok",
		"id":   id.Int64(),
	})
}

// reply sends body back to the sender of msg. Node.Reply round-trips the body
// through map[string]any, which decodes numbers as float64 and would round
// IDs above 2^53, so in_reply_to is set here and the body sent as is.
func (s *server) reply(msg maelstrom.Message, body map[string]any) error {
	var req maelstrom.MessageBody
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		return err
	}
	body["in_reply_to"] = req.MsgID
	return s.node.Send(msg.Src, body)
}

func main() {
	// stdout carries the protocol; logs go to stderr
	logger, err := logging.New(os.Getenv("SNOWFLAKE_LOG_LEVEL"), os.Getenv("SNOWFLAKE_LOG_FORMAT"), os.Stderr)
	if err != nil {
		log.Fatal(err)
	}
	s := newServer(maelstrom.NewNode(), logger)
	if err := s.node.Run(); err != nil {
		log.Fatal(err)
	}
}
