// Package repositories implements SQLite persistence for spotctl's models.
//
// [HistoryRepository] caches recently played items so history survives the API's
// 50 item window. Rows are keyed by uuid and de-duplicated on (track_id, played_at).
package repositories
