package tcp

import (
	"context"
	"testing"
	"time"

	"github.com/ergotnet/ergot"
	"github.com/ergotnet/ergot/iface"
	"github.com/ergotnet/ergot/netstack"
	"github.com/ergotnet/ergot/wellknown"
)

func TestPingAcrossTCPLink(t *testing.T) {
	serverProfile := iface.NewRouterProfile()
	var serverStack netstack.NetStack
	if err := serverStack.Reset(netstack.Config{Profile: serverProfile}); err != nil {
		t.Fatalf("server Reset: %v", err)
	}

	pingSrv, err := wellknown.NewPingServer(&serverStack)
	if err != nil {
		t.Fatalf("NewPingServer: %v", err)
	}
	defer pingSrv.Close()

	router, err := ListenRouter("127.0.0.1:0", serverProfile, &serverStack)
	if err != nil {
		t.Fatalf("ListenRouter: %v", err)
	}
	defer router.Close()
	go router.Serve()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() {
		for {
			if err := pingSrv.Serve(ctx); err != nil {
				return
			}
		}
	}()

	clientProfile := iface.NewEdgeProfile()
	var clientStack netstack.NetStack
	if err := clientStack.Reset(netstack.Config{Profile: clientProfile}); err != nil {
		t.Fatalf("client Reset: %v", err)
	}

	link, err := DialEdge(router.Addr().String(), clientProfile, &clientStack)
	if err != nil {
		t.Fatalf("DialEdge: %v", err)
	}
	defer link.Close()
	go link.Run()

	var netID uint16
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		ids := serverProfile.NetIDs()
		if len(ids) == 1 {
			netID = ids[0]
			break
		}
		time.Sleep(time.Millisecond)
	}
	if netID == 0 {
		t.Fatalf("server never attached the incoming link")
	}
	if err := clientProfile.SetNetID(netID); err != nil {
		t.Fatalf("SetNetID: %v", err)
	}

	target := ergot.Address{NetworkID: netID, NodeID: ergot.NodeIDController}
	got, err := wellknown.Ping(ctx, &clientStack, target, 42)
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if got != 42 {
		t.Fatalf("ping echoed %d, want 42", got)
	}
}
