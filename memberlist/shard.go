package memberlist

import (
	"encoding/binary"

	"github.com/twmb/murmur3"

	"github.com/lazyguild/lazyguild/snowflake"
)

// ShardFor maps a channel id to one of shardCount lock-contention shards.
// It exists purely to let a deployment spread its per-list mutexes across
// several internal partitions under heavy fan-out; it has no effect on
// ordering guarantees, since ordering is only ever promised within a
// single list.
func ShardFor(channel snowflake.ChannelID, shardCount uint32) uint32 {
	if shardCount == 0 {
		return 0
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(channel))

	return murmur3.Sum32(buf[:]) % shardCount
}
