// Package schedule fires calls on cron expressions.
//
// An [Entry] names a registered callable, its arguments and its declared
// resources. On each tick the [Scheduler] submits every due, enabled entry
// as an asynchronous call stamped with the entry's schedule id, so its
// reports can be found with a schedule_id search. The submitted call goes
// through the same conflict check as any other call and may be postponed
// or rejected.
//
// Expressions use the standard five cron fields or descriptors such as
// "@every 30s" and "@hourly".
package schedule
