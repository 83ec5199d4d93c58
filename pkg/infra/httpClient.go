package infra

import (
	"time"

	"github.com/imroc/req/v3"
)

// HttpClient is shared by outbound calls (webhook notifier). Retries
// with a fixed interval so a briefly unreachable receiver does not
// drop notifications.
var HttpClient = req.C().
	SetTimeout(10 * time.Second).
	SetCommonRetryCount(3).
	SetCommonRetryFixedInterval(3 * time.Second)
