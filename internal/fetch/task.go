package fetch

import (
	"fmt"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
)

type Task struct {
	Ticker     string
	Expiration string
}

func (t Task) String() string {
	return fmt.Sprintf("%s/%s", t.Ticker, t.Expiration)
}

type TaskResult struct {
	Task     Task
	Chain    analytics.ExpirationChain
	Success  bool
	NotFound bool
	Error    error
}
