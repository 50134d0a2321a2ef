package random

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"
)

var source *rand.Rand

// Init seeds the package-level source. WCTEST_RANDOM_SEED pins the seed so
// a failing run can be reproduced.
func Init() {
	seed := time.Now().UnixNano()
	if fromEnv := os.Getenv("WCTEST_RANDOM_SEED"); fromEnv != "" {
		if parsed, err := strconv.ParseInt(fromEnv, 10, 64); err == nil {
			seed = parsed
		}
	}
	source = rand.New(rand.NewSource(seed))
}

func ensureInit() {
	if source == nil {
		Init()
	}
}

// RandomInt returns a random integer in [min, max).
func RandomInt(min, max int) int {
	ensureInit()
	return min + source.Intn(max-min)
}

// RandomString returns a random lowercase string of length n, usable as a
// file or directory name fragment.
func RandomString(n int) string {
	ensureInit()
	const letters = "abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[source.Intn(len(letters))]
	}
	return string(b)
}

// RandomWord returns a short identifier like "word-42", handy for making
// test fixture values that students/toolchains can't hardcode against.
func RandomWord() string {
	return fmt.Sprintf("%s-%d", RandomString(4), RandomInt(10, 100))
}
