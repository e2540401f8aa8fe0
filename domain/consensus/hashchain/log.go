package hashchain

import "github.com/liuhongchao/alephium/infrastructure/logger"

var log = logger.RegisterSubsystem("HCHN")
