package ipcsem

import (
	"fmt"
	"os"
	"testing"

	"go.uber.org/goleak"
)

// resolveHelperEnv makes the test binary resolve one name and print the key,
// so tests can compare keys across processes.
const resolveHelperEnv = "IPCSEM_TEST_RESOLVE_NAME"

func TestMain(m *testing.M) {
	if name := os.Getenv(resolveHelperEnv); name != "" {
		key, err := ResolveKey(name)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Print(key)
		os.Exit(0)
	}
	goleak.VerifyTestMain(m)
}
