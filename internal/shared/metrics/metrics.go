package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	documentsUploadedTotal  atomic.Uint64
	documentsProcessedTotal atomic.Uint64
	processingFailuresTotal atomic.Uint64
	fieldsDetectedTotal     atomic.Uint64
	chatMessagesTotal       atomic.Uint64
	aiFillTotal             atomic.Uint64
	ollamaRequestsTotal     atomic.Uint64

	processingDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncDocumentUploaded increments the upload counter.
func IncDocumentUploaded() {
	documentsUploadedTotal.Add(1)
}

// IncDocumentProcessed increments the processed counter.
func IncDocumentProcessed() {
	documentsProcessedTotal.Add(1)
}

// IncProcessingFailed increments the failure counter.
func IncProcessingFailed() {
	processingFailuresTotal.Add(1)
}

// AddFieldsDetected records how many blank fields a document produced.
func AddFieldsDetected(n int) {
	if n <= 0 {
		return
	}
	fieldsDetectedTotal.Add(uint64(n))
}

// IncChatMessage increments the chat message counter.
func IncChatMessage() {
	chatMessagesTotal.Add(1)
}

// IncAIFill increments the counter of AI-filled fields.
func IncAIFill() {
	aiFillTotal.Add(1)
}

// IncOllamaRequest increments the counter of calls to the local model server.
func IncOllamaRequest() {
	ollamaRequestsTotal.Add(1)
}

// ObserveProcessingDurationMs records a document processing duration in milliseconds.
func ObserveProcessingDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	processingDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "documents_uploaded_total", "Total documents uploaded", documentsUploadedTotal.Load())
	writeCounter(&buf, "documents_processed_total", "Total documents processed successfully", documentsProcessedTotal.Load())
	writeCounter(&buf, "document_processing_failures_total", "Total documents that failed processing", processingFailuresTotal.Load())
	writeCounter(&buf, "fields_detected_total", "Total blank fields detected across documents", fieldsDetectedTotal.Load())
	writeCounter(&buf, "chat_messages_total", "Total chat messages handled", chatMessagesTotal.Load())
	writeCounter(&buf, "ai_fill_total", "Total fields filled by the assistant", aiFillTotal.Load())
	writeCounter(&buf, "ollama_requests_total", "Total requests sent to the local model server", ollamaRequestsTotal.Load())
	writeHistogram(&buf, "document_processing_duration_ms", "Document processing duration in milliseconds", processingDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	// Per-bucket counts; the exposition pass accumulates them.
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
