package model

// NameRebuildMessage 姓名格式变更后，通知 worker 重新计算所有个人联系人的 sort_name / display_name
type NameRebuildMessage struct {
	MessageID   string `json:"message_id"` // 消息唯一ID，用于日志追踪
	Setting     string `json:"setting"`    // 触发重建的配置项
	RequestedAt string `json:"requested_at"`
}
