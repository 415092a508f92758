package constants

// PageStatus is the outcome recorded for each page of a run.
type PageStatus string

const (
	PageStatusOK               PageStatus = "OK"                // page went through every stage
	PageStatusRenderFailed     PageStatus = "RENDER_FAILED"     // rendered image could not be decoded
	PageStatusPreprocessFailed PageStatus = "PREPROCESS_FAILED" // preprocessing produced nothing usable
	PageStatusOCRFailed        PageStatus = "OCR_FAILED"        // engine failed, page contributes nothing
	PageStatusExtractFailed    PageStatus = "EXTRACT_FAILED"    // every pattern failed on this page
	PageStatusSkipped          PageStatus = "SKIPPED"           // run aborted before the page started
)
