package main

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	stream "github.com/sagernet/sing-stream"
	"github.com/sagernet/sing-stream/common/log"
	N "github.com/sagernet/sing-stream/common/network"
	"github.com/sagernet/sing-stream/conf"
	"github.com/sagernet/sing-stream/transport/socket"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type flags struct {
	ConfigFile string
	Verbose    bool
	TLS        bool
	NoDelay    bool
}

func main() {
	f := new(flags)

	command := &cobra.Command{
		Use:     "streamcat",
		Short:   "non-blocking stream transport tool",
		Version: stream.Version,
	}
	command.PersistentFlags().StringVarP(&f.ConfigFile, "config", "c", "", "Use a configuration file.")
	command.PersistentFlags().BoolVarP(&f.Verbose, "verbose", "v", false, "Enable verbose mode.")
	command.PersistentFlags().BoolVar(&f.NoDelay, "no-delay", false, "Coalesce writes until flushed.")

	listen := &cobra.Command{
		Use:   "listen <endpoint>",
		Short: "Accept one connection and bridge it to stdio",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			run(f, func(e *environment) error {
				return e.listen(args[0])
			})
		},
	}
	listen.Flags().BoolVar(&f.TLS, "tls", false, "Serve TLS.")

	connect := &cobra.Command{
		Use:   "connect <endpoint>",
		Short: "Connect and bridge the stream to stdio",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			run(f, func(e *environment) error {
				return e.connect(args[0])
			})
		},
	}
	connect.Flags().BoolVar(&f.TLS, "tls", false, "Connect with TLS.")

	multicast := &cobra.Command{
		Use:   "multicast",
		Short: "Send or receive multicast datagrams",
	}
	multicast.AddCommand(&cobra.Command{
		Use:   "send <group:port[,interface=name]>",
		Short: "Send each stdin line as one datagram",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			run(f, func(e *environment) error {
				return e.multicastSend(args[0])
			})
		},
	}, &cobra.Command{
		Use:   "receive <group:port[,interface=name]>",
		Short: "Print received datagrams to stdout",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			run(f, func(e *environment) error {
				return e.multicastReceive(args[0])
			})
		},
	})

	command.AddCommand(listen, connect, multicast)
	err := command.Execute()
	if err != nil {
		logrus.Fatal(err)
	}
}

type environment struct {
	ctx     *N.Context
	iface   N.Interface
	flags   N.Flags
	waker   *socket.Waker
	stopped atomic.Bool
	logger  logrus.FieldLogger
}

func run(f *flags, action func(e *environment) error) {
	if f.Verbose {
		logrus.SetLevel(logrus.TraceLevel)
	}
	config := new(conf.Config)
	if f.ConfigFile != "" {
		var err error
		config, err = conf.Load(f.ConfigFile)
		if err != nil {
			logrus.Fatal(err)
		}
	}
	if f.NoDelay {
		config.NoDelay = true
	}
	ctx, err := config.Build()
	if err != nil {
		logrus.Fatal(err)
	}
	name := "socket"
	if f.TLS {
		name = "tls"
	}
	iface, err := config.Interface(name)
	if err != nil {
		logrus.Fatal(err)
	}
	waker, err := socket.NewWaker()
	if err != nil {
		logrus.Fatal(err)
	}
	defer waker.Close()

	e := &environment{
		ctx:    ctx,
		iface:  iface,
		flags:  N.FlagUseGlobalSettings,
		waker:  waker,
		logger: log.NewLogger("streamcat"),
	}

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-osSignals
		e.stopped.Store(true)
		waker.Wake()
	}()

	err = action(e)
	if err != nil {
		logrus.Fatal(err)
	}
}
