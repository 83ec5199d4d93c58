package txlog

import "luma-live/stagepass/ticket-queue-server/pkg/config"

func ProvideWriter() (Writer, error) {
	path := *config.CFG.TransactionLogPath
	if path == "" {
		return Discard{}, nil
	}
	return NewCSVWriter(path)
}
