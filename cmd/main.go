package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Nossos pacotes de infraestrutura e utilitários
	"almox/config"
	"almox/internal/notifier"
	"almox/internal/pkg/cache"
	"almox/internal/pkg/database"
	"almox/internal/pkg/filestore"
	"almox/internal/pkg/logger"
	"almox/internal/pkg/token"

	// Camadas para Injeção de Dependências
	"almox/internal/api/dashboard"
	"almox/internal/api/request"
	"almox/internal/api/router"
	"almox/internal/api/sale"
	"almox/internal/api/stock"
	"almox/internal/api/user"
	"almox/internal/repository/dispatchrepo"
	"almox/internal/repository/itemrepo"
	"almox/internal/repository/requestrepo"
	"almox/internal/repository/salesrepo"
	"almox/internal/repository/stockrepo"
	"almox/internal/repository/userrepo"
	"almox/internal/service/dashboardservice"
	"almox/internal/service/requestservice"
	"almox/internal/service/saleservice"
	"almox/internal/service/stockservice"
	"almox/internal/service/userservice"
)

func main() {
	// 1. Configuração e Inicialização
	stdlog.Println("⚡ Inicializando serviço Almox...")

	// 0. CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	// O godotenv.Load() procura por um arquivo chamado .env na raiz.
	if err := godotenv.Load(); err != nil {
		// Se o arquivo .env não for encontrado, avisamos mas continuamos:
		// as variáveis essenciais podem estar no ambiente (ex: Docker).
		stdlog.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Configurações carregadas.", nil)

	// 2. Conexão com Recursos de Infraestrutura

	// A. Banco de Dados (PostgreSQL)
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	log.Info("Conexão PostgreSQL estabelecida.", nil)

	// B. Cache (Redis)
	cacheClient := cache.NewRedisClient(cfg.RedisAddr)
	log.Info("Conexão Redis estabelecida.", nil)

	// C. Storage local para notas fiscais
	files, err := filestore.NewLocalStore(cfg.UploadDir)
	if err != nil {
		log.Fatal("Falha ao preparar o diretório de uploads.", err)
	}

	// D. Notificações por email (Resend). Sem API key, rodamos com o sink
	// nulo: transições de estado nunca dependem da entrega de email.
	var sink notifier.Sink = notifier.NopSink{}
	if cfg.ResendAPIKey != "" {
		sink = notifier.NewResendSink(cfg.ResendAPIKey, cfg.EmailFrom, log)
		log.Info("Notificador Resend habilitado.", nil)
	} else {
		log.Warn("RESEND_API_KEY ausente. Notificações por email desabilitadas.", nil)
	}

	// E. Serviço de Tokens (JWT)
	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
	log.Debug("Serviço de Tokens JWT inicializado.", nil)

	// 3. INJEÇÃO DE DEPENDÊNCIAS
	// Ordem: Repository -> Service -> Handler

	// A. Repositórios (Camada de Acesso a Dados)
	userRepo := userrepo.NewUserRepository(db, cfg.DBTimeout, log)
	itemRepo := itemrepo.NewItemRepository(db, cacheClient, cfg.DBTimeout, cfg.CacheTTL, log)
	stockRepo := stockrepo.NewStockRepository(db, cfg.DBTimeout, log)
	requestRepo := requestrepo.NewRequestRepository(db, cfg.DBTimeout, log)
	dispatchRepo := dispatchrepo.NewDispatchRepository(db, cfg.DBTimeout, log)
	saleRepo := salesrepo.NewSaleRepository(db, cfg.DBTimeout, log)
	log.Debug("Repositórios inicializados.", nil)

	// B. Serviços (Camada de Lógica de Negócio)
	userSvc := userservice.NewService(userRepo, tokenSvc, log)
	stockSvc := stockservice.NewService(stockRepo, itemRepo, log)
	requestSvc := requestservice.NewService(requestRepo, dispatchRepo, itemRepo, userRepo, sink, log)
	saleSvc := saleservice.NewService(saleRepo, stockRepo, itemRepo, log)
	dashboardSvc := dashboardservice.NewService(requestRepo, itemRepo, dispatchRepo, cacheClient, cfg.CacheTTL, log)
	log.Debug("Serviços inicializados.", nil)

	// C. Handlers (Camada de Apresentação)
	handlers := router.Handlers{
		User:      user.NewHandler(userSvc, log),
		Request:   request.NewHandler(requestSvc, files, log),
		Stock:     stock.NewHandler(stockSvc, log),
		Sale:      sale.NewHandler(saleSvc, files, log),
		Dashboard: dashboard.NewHandler(dashboardSvc, log),
	}
	log.Debug("Handlers inicializados.", nil)

	// 4. Configuração e Início do Roteador/Servidor
	r := router.NewRouter(handlers, tokenSvc, cacheClient, cfg.RateLimitMaxRequests, cfg.RateLimitPeriod)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		log.Info("Servidor Almox ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Servidor falhou.", err)
		}
	}()

	// Lógica do Graceful Shutdown (captura de sinal)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	// Timeout para desligamento (usa o contexto)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Desligamento do servidor forçado.", err)
	}

	log.Info("Servidor encerrado com sucesso.", nil)
}
