package misbehavior

import "github.com/liuhongchao/alephium/infrastructure/logger"

var log = logger.RegisterSubsystem("MISB")
