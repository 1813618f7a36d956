// Package uploadqueue persists the ordered list of publish items awaiting
// upload, schedule, and publish, and provides title deduplication against
// queue history. The queue is one JSON file rewritten atomically per
// mutation; a missing or corrupt file loads as an empty queue.
package uploadqueue
