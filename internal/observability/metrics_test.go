package observability

import (
	"testing"
	"time"

	"github.com/danmuck/seqwire/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordSessionOpened()
	RecordFrameReceived(OutcomeValid)
	RecordFrameReceived(OutcomeIntegrity)
	RecordFrameReceived(OutcomeDecodeError)
	RecordFrameSent(FrameDirect)
	RecordFrameSent(FrameBatch)
	RecordBatchFlush(3)
	RecordDigestSearchDepth(0)
	RecordDigestSearchDepth(99)
	RecordHTTPRequest("gw-a", "GET", "/health", 200, 12*time.Millisecond)
	RecordSessionClosed()
}
