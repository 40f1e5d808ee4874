package dto

type OKResponse struct {
	OK bool `json:"ok"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}
