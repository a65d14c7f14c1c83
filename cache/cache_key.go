package cache

import (
	"hash/crc32"
	"hash/fnv"
	"strconv"
)

// GenerateCacheKey 根据完整内容生成缓存键
// 键由长度、FNV-1a 64 和 CRC-32 组成，覆盖全部内容而不是前缀采样，
// 因此共享很长前缀、只在后面不同的两段文本也会得到不同的键。
func GenerateCacheKey(text string) string {
	h := fnv.New64a()
	h.Write([]byte(text))
	sum := crc32.ChecksumIEEE([]byte(text))

	buf := make([]byte, 0, 48)
	buf = append(buf, "fl:"...)
	buf = strconv.AppendInt(buf, int64(len(text)), 10)
	buf = append(buf, ':')
	buf = strconv.AppendUint(buf, h.Sum64(), 16)
	buf = append(buf, ':')
	buf = strconv.AppendUint(buf, uint64(sum), 16)
	return string(buf)
}
