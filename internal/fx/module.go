package fx

import "go.uber.org/fx"

// AppModule wires every module of the API service.
var AppModule = fx.Options(
	ConfigModule,
	TelemetryModule,
	InfrastructureModule,
	DomainModule,
	MiddlewareModule,
	RoutesModule,
	ServerModule,
)
