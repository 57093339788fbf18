package utils

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var clientSeq atomic.Uint64

// NewClientID returns a process-unique client identifier.
// The sequence component makes collisions impossible within one process.
func NewClientID() string {
	seq := clientSeq.Add(1)
	return "client_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + strconv.FormatUint(seq, 10)
}

// NewMessageID returns a globally unique message identifier built from
// the generation time and a random suffix.
func NewMessageID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "msg_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + suffix
}
