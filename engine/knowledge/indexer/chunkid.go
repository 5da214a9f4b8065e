package indexer

import (
	"strconv"

	"github.com/google/uuid"
)

var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://tubechat.dev/chunks"))

// ChunkID derives a stable identifier from the video and block start.
func ChunkID(videoID string, startSec int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(videoID+":"+strconv.Itoa(startSec))).String()
}
