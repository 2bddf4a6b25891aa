package builder

import "time"

func (b *Builder) Host(host string) *Builder {
	b.cfg.AppHost = host
	return b
}

func (b *Builder) Port(port int) *Builder {
	b.cfg.AppPort = port
	return b
}

func (b *Builder) AllowedOrigins(origins string) *Builder {
	b.cfg.AllowedOrigins = origins
	return b
}

func (b *Builder) Environment(env string) *Builder {
	b.cfg.Environment = env
	return b
}

func (b *Builder) LogLevel(level string) *Builder {
	b.cfg.LogLevel = level
	return b
}

func (b *Builder) RequestTimeout(timeout time.Duration) *Builder {
	b.cfg.RequestTimeout = timeout
	return b
}

func (b *Builder) MaxUploadBytes(n int) *Builder {
	b.cfg.MaxUploadBytes = n
	return b
}

func (b *Builder) MaxVisionFiles(n int) *Builder {
	b.cfg.MaxVisionFiles = n
	return b
}

func (b *Builder) PipelineConcurrency(n int) *Builder {
	b.cfg.PipelineConcurrency = n
	return b
}
