package serial

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ergotnet/ergot"
	"github.com/ergotnet/ergot/iface"
	"github.com/ergotnet/ergot/netstack"
	"github.com/ergotnet/ergot/wellknown"
)

func TestPingAcrossPipeLink(t *testing.T) {
	hostConn, deviceConn := net.Pipe()

	routerProfile := iface.NewRouterProfile()
	var hostStack netstack.NetStack
	if err := hostStack.Reset(netstack.Config{Profile: routerProfile}); err != nil {
		t.Fatalf("host Reset: %v", err)
	}
	pingSrv, err := wellknown.NewPingServer(&hostStack)
	if err != nil {
		t.Fatalf("NewPingServer: %v", err)
	}
	defer pingSrv.Close()

	hostLink, netID, err := RegisterRouter(hostConn, routerProfile, &hostStack)
	if err != nil {
		t.Fatalf("RegisterRouter: %v", err)
	}
	defer hostLink.Close()
	go hostLink.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() {
		for {
			if err := pingSrv.Serve(ctx); err != nil {
				return
			}
		}
	}()

	edgeProfile := iface.NewEdgeProfile()
	var edgeStack netstack.NetStack
	if err := edgeStack.Reset(netstack.Config{Profile: edgeProfile}); err != nil {
		t.Fatalf("edge Reset: %v", err)
	}
	edgeLink := Register(deviceConn, edgeProfile, &edgeStack)
	defer edgeLink.Close()
	go edgeLink.Run()

	if err := edgeProfile.SetNetID(netID); err != nil {
		t.Fatalf("SetNetID: %v", err)
	}

	target := ergot.Address{NetworkID: netID, NodeID: ergot.NodeIDController}
	got, err := wellknown.Ping(ctx, &edgeStack, target, 7)
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if got != 7 {
		t.Fatalf("ping echoed %d, want 7", got)
	}
}
