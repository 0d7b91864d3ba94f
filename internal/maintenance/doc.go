// Package maintenance runs the retention sweep: on a cron schedule it deletes
// COMPLETED queue items older than the retention window together with their
// clip rows and, optionally, the clip and thumbnail files.
package maintenance
