package mqtt

import "fmt"

func TopicTerminalUtterance(prefix string) string {
	return fmt.Sprintf("%s/terminal/+/utterance", prefix)
}

func TopicTerminalOnline(prefix string) string {
	return fmt.Sprintf("%s/terminal/+/online", prefix)
}

func TopicUtterance(prefix, terminalID string) string {
	return fmt.Sprintf("%s/terminal/%s/utterance", prefix, terminalID)
}

func TopicSpeak(prefix, terminalID string) string {
	return fmt.Sprintf("%s/terminal/%s/speak", prefix, terminalID)
}

func TopicOnline(prefix, terminalID string) string {
	return fmt.Sprintf("%s/terminal/%s/online", prefix, terminalID)
}
