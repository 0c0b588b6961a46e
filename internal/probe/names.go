package probe

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

const nameAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomName returns prefix_ followed by n characters from [a-z0-9].
// intn defaults to math/rand.
func RandomName(prefix string, n int, intn func(int) int) string {
	if intn == nil {
		intn = rand.IntN
	}
	var b strings.Builder
	b.Grow(len(prefix) + 1 + n)
	b.WriteString(prefix)
	b.WriteByte('_')
	for i := 0; i < n; i++ {
		b.WriteByte(nameAlphabet[intn(len(nameAlphabet))])
	}
	return b.String()
}

// VersionTestName returns VersionTest_NNNN with NNNN in [1000, 9999].
func VersionTestName(intn func(int) int) string {
	if intn == nil {
		intn = rand.IntN
	}
	return fmt.Sprintf("VersionTest_%d", 1000+intn(9000))
}
