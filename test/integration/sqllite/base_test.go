package sqllite

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"
)

var fileSeq int32 = 0

func runTestWithSetup(t *testing.T, testFunc func(t *testing.T, filename string)) {
	filename := fmt.Sprintf("kpflow-test-%d.db", atomic.AddInt32(&fileSeq, 1))
	defer os.Remove(filename)
	os.Setenv("KPFLOW_DATABASE_TYPE", "SQLLITE")
	os.Setenv("KPFLOW_DATABASE_SQLLITE_FILE_NAME", filename)
	testFunc(t, filename)
}
