package services

import "strings"

// Processing topics.
const (
	TopicProcessPDF   = "process-pdf"
	TopicProcessVideo = "process-video"
	TopicProcessImage = "process-image"
	TopicProcessCSV   = "process-csv"
)

type contentRoute struct {
	match string
	exact bool
	topic string
}

// Ordered routing table; first match wins. Content needing no processor
// falls through and is terminal at finalize time.
var contentRoutes = []contentRoute{
	{match: "application/pdf", topic: TopicProcessPDF},
	{match: "video/", topic: TopicProcessVideo},
	{match: "image/", topic: TopicProcessImage},
	{match: "text/csv", exact: true, topic: TopicProcessCSV},
	{match: "application/csv", exact: true, topic: TopicProcessCSV},
}

// DetectJobTopic maps a content type to its processing topic, or "" when
// no processor applies.
func DetectJobTopic(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" {
		return ""
	}
	for _, r := range contentRoutes {
		if r.exact {
			if ct == r.match {
				return r.topic
			}
		} else if strings.HasPrefix(ct, r.match) {
			return r.topic
		}
	}
	return ""
}
