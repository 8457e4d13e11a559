package hopcrypt

// ProgressStage names a phase of the encrypt/decrypt pipeline a
// ProgressEvent was emitted from.
type ProgressStage int

const (
	StageCompressingDirectory ProgressStage = iota
	StageCompressingGzip
	StageEncrypting
	StageDecrypting
	StageDecompressingGzip
	StageDecompressingDirectory
	StageDone
)

func (s ProgressStage) String() string {
	switch s {
	case StageCompressingDirectory:
		return "compressing_directory"
	case StageCompressingGzip:
		return "compressing_gzip"
	case StageEncrypting:
		return "encrypting"
	case StageDecrypting:
		return "decrypting"
	case StageDecompressingGzip:
		return "decompressing_gzip"
	case StageDecompressingDirectory:
		return "decompressing_directory"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// ProgressEvent reports incremental progress within one pipeline stage.
// TotalBytes of 0 means "unknown". Within a single stage, BytesProcessed
// is non-decreasing; Done is emitted exactly once at the end of a
// successful pipeline.
type ProgressEvent struct {
	Stage          ProgressStage
	BytesProcessed uint64
	TotalBytes     uint64
}

// Percentage returns BytesProcessed/TotalBytes*100, or 0 when TotalBytes
// is 0 (unknown total).
func (e ProgressEvent) Percentage() float64 {
	if e.TotalBytes == 0 {
		return 0.0
	}
	return float64(e.BytesProcessed) / float64(e.TotalBytes) * 100.0
}

// ProgressFunc is the callback contract: called from arbitrary worker
// goroutines, fire-and-forget; its failure or panic-freedom is the
// caller's responsibility, and it must not block the pipeline. A nil
// ProgressFunc is valid and simply receives no events.
type ProgressFunc func(ProgressEvent)

func emit(cb ProgressFunc, stage ProgressStage, processed, total uint64) {
	if cb == nil {
		return
	}
	cb(ProgressEvent{Stage: stage, BytesProcessed: processed, TotalBytes: total})
}
