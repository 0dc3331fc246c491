package log

import "log/slog"

func RunID[T ~string](id T) slog.Attr {
	return slog.String("run_id", string(id))
}

func Workflow(name string) slog.Attr {
	return slog.String("workflow", name)
}

func StepID[T ~string](id T) slog.Attr {
	return slog.String("step_id", string(id))
}

func WorkerType[T ~string](wt T) slog.Attr {
	return slog.String("worker_type", string(wt))
}

func Status[T ~string](status T) slog.Attr {
	return slog.String("status", string(status))
}

func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}
