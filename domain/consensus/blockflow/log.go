package blockflow

import "github.com/liuhongchao/alephium/infrastructure/logger"

var log = logger.RegisterSubsystem("BFLW")
