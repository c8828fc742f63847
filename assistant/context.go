package assistant

import "strings"

// Topic is the conversation context tag attached to a turn.
type Topic string

const (
	TopicListening Topic = "listening"
	TopicReading   Topic = "reading"
	TopicWriting   Topic = "writing"
	TopicSpeaking  Topic = "speaking"
	TopicQuizHelp  Topic = "quiz_help"
	TopicGeneral   Topic = "general"
)

type keywordGroup struct {
	topic    Topic
	keywords []string
}

// Ordered: first matching group wins.
var keywordGroups = []keywordGroup{
	{TopicListening, []string{"nghe", "listening", "audio", "băng"}},
	{TopicReading, []string{"đọc", "reading", "văn bản"}},
	{TopicWriting, []string{"viết", "writing", "essay", "bài luận", "thư"}},
	{TopicSpeaking, []string{"nói", "speaking", "phát âm", "thuyết trình"}},
	{TopicQuizHelp, []string{"đáp án", "mã đề", "bài thi", "kết quả", "điểm", "quiz", "lịch sử"}},
}

// ContextDetector maps raw user text to a topic tag by case-insensitive
// substring matching. Pure and deterministic.
type ContextDetector struct {
	enabled bool
}

func NewContextDetector(enabled bool) *ContextDetector {
	return &ContextDetector{enabled: enabled}
}

func (d *ContextDetector) Detect(text string) Topic {
	if !d.enabled {
		return TopicGeneral
	}

	lower := strings.ToLower(text)
	for _, group := range keywordGroups {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.topic
			}
		}
	}
	return TopicGeneral
}
