package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the process-wide logger. Every line it emits is a single
// JSON object; the request middleware and the audit trail both write
// through it so the service's log output stays machine-parseable end to
// end.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest serializes one completed-request entry as a JSON line. A
// marshal failure must not drop the line silently, so a fixed fallback
// entry is emitted instead.
func LogRequest(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"request log entry dropped: marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}
