package model

type PredictionRequest struct {
	Circuit string      `json:"circuit"`
	Weather Weather     `json:"weather"`
	Entries []RaceEntry `json:"entries"`
}

type PredictionRecord struct {
	Driver            string  `json:"driver"`
	Constructor       string  `json:"constructor"`
	Grid              int     `json:"grid"`
	PredictedPosition int     `json:"predicted_position"`
	PodiumChance      bool    `json:"podium_chance"`
	PointsChance      bool    `json:"points_chance"`
	PointsEarned      int     `json:"points_earned"`
	WinProbability    float64 `json:"win_probability"`
	TireStrategy      string  `json:"tire_strategy"`
}

type RaceInfo struct {
	Circuit     string  `json:"circuit"`
	Weather     string  `json:"weather"`
	Temperature float64 `json:"temperature"`
	TrackTemp   float64 `json:"track_temp"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
}

type PredictionResult struct {
	Success     bool               `json:"success"`
	Predictions []PredictionRecord `json:"predictions"`
	RaceInfo    RaceInfo           `json:"race_info"`
}
