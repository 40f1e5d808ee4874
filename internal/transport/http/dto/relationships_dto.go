package dto

type BlockRequest struct {
	TargetID int64 `json:"target_id"`
}

type ReportRequest struct {
	TargetID int64  `json:"target_id"`
	Reason   string `json:"reason"`
}
