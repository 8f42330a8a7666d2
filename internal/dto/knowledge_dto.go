package dto

type ReindexRequest struct {
	// Dir overrides the configured knowledge directory.
	Dir string `json:"dir,omitempty" validate:"omitempty,max=512"`
}

type ReindexResponse struct {
	JobId string `json:"job_id"`
	Topic string `json:"topic"`
}

// ReindexMessage is the job payload on the reindex topic.
type ReindexMessage struct {
	JobId string `json:"job_id"`
	Dir   string `json:"dir"`
}

type KnowledgeStatsResponse struct {
	Chunks  int64 `json:"chunks"`
	Sources int64 `json:"sources"`
}

type ListChunksRequest struct {
	Source string `query:"source" validate:"omitempty,max=512"`
	// Ids is a comma separated list of chunk ids ("<source>#<index>").
	Ids    string `query:"ids"`
	Limit  int    `query:"limit" validate:"omitempty,gte=1,lte=200"`
	Offset int    `query:"offset" validate:"omitempty,gte=0"`
}

type ChunkResponse struct {
	ChunkId    string                 `json:"chunk_id"`
	Source     string                 `json:"source"`
	ChunkIndex int                    `json:"chunk_index"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata"`
}
