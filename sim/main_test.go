package sim

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

// TestMain keeps per-tick debug lines out of test output unless
// CELAVI_DEBUG_TESTS is set.
func TestMain(m *testing.M) {
	if os.Getenv("CELAVI_DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	} else {
		logrus.SetLevel(logrus.DebugLevel)
	}
	os.Exit(m.Run())
}
