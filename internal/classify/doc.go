// Package classify sends document images to a vision-capable chat
// completions API and parses the response into classification records.
//
// The classifier is best-effort per image: a transport failure, non-success
// status, unparseable response, or schema violation produces an error-marked
// record rather than an error, so one bad image never aborts a batch.
package classify
