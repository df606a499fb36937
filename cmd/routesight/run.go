package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Oculis-Navigate/go-routesight"
	"github.com/Oculis-Navigate/go-routesight/detect/dnn"
	"github.com/Oculis-Navigate/go-routesight/detect/tesseract"
	"github.com/Oculis-Navigate/go-routesight/pipeline"
	"github.com/Oculis-Navigate/go-routesight/preprocess"
	"github.com/Oculis-Navigate/go-routesight/render"
	"github.com/Oculis-Navigate/go-routesight/speech"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
)

var (
	runSource    string
	runModel     string
	runLabels    string
	runWhitelist string
	runSpeak     bool
	runStream    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a live detection and announcement session",
	RunE:  runSession,
}

func init() {
	runCmd.Flags().StringVar(&runSource, "source", "0",
		"video source, camera index or file path")
	runCmd.Flags().StringVar(&runModel, "model", "vehicle.onnx",
		"ONNX vehicle detection model file")
	runCmd.Flags().StringVar(&runLabels, "labels", "labels.txt",
		"text file with the model class labels")
	runCmd.Flags().StringVar(&runWhitelist, "whitelist",
		tesseract.DefaultWhitelist,
		"characters the symbol reader may produce")
	runCmd.Flags().BoolVar(&runSpeak, "speak", false,
		"voice announcements through the text to speech sink")
	runCmd.Flags().StringVar(&runStream, "stream", "",
		"serve an MJPEG overlay stream on this address, eg :8080")

	rootCmd.AddCommand(runCmd)
}

func runSession(cmd *cobra.Command, args []string) error {

	labels, err := routesight.LoadLabels(runLabels)

	if err != nil {
		return fmt.Errorf("failed to load labels: %w", err)
	}

	primary, err := dnn.NewDetector(dnn.Params{
		ModelFile: runModel,
		Labels:    labels,
	})

	if err != nil {
		return fmt.Errorf("failed to load vehicle model: %w", err)
	}

	defer primary.Close()

	// symbol reads are CPU bound, a pool keeps them off the frame path
	secondary, err := routesight.NewDetectorPool(routesight.DefaultPoolSize(),
		func() (routesight.Detector, error) {
			return tesseract.NewReader(tesseract.Params{
				Whitelist: runWhitelist,
			})
		})

	if err != nil {
		return fmt.Errorf("failed to create symbol readers: %w", err)
	}

	defer secondary.Close()

	var voice routesight.Announcer

	if runSpeak {
		voice = speech.NewSpeaker("")
	}

	session, err := pipeline.NewSession(params, primary, secondary, voice)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	// overlay state shared between the capture loop and the session hooks
	var (
		mu       sync.Mutex
		last     pipeline.Cycle
		lastText string
	)

	session.OnCycle = func(c pipeline.Cycle) {
		mu.Lock()
		last = c
		mu.Unlock()
	}

	session.OnAnnounce = func(text string) {
		log.Printf("route %s", text)

		mu.Lock()
		lastText = text
		mu.Unlock()
	}

	capture, err := gocv.OpenVideoCapture(runSource)

	if err != nil {
		return fmt.Errorf("failed to open video source %s: %w",
			runSource, err)
	}

	defer capture.Close()

	var mjpeg *streamer

	if runStream != "" {
		mjpeg = &streamer{}

		go func() {
			log.Printf("overlay stream on http://%s", runStream)

			if err := http.ListenAndServe(runStream, mjpeg); err != nil {
				log.Printf("stream server stopped: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	frames := make(chan pipeline.Frame, 4)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return session.Run(ctx, frames)
	})

	// capture loop, feeds the session and renders the overlay stream
	g.Go(func() error {

		mat := gocv.NewMat()
		defer mat.Close()

		font := render.DefaultFont()

		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			if !capture.Read(&mat) || mat.Empty() {
				// end of a file source stops the session
				close(frames)
				return nil
			}

			img, err := preprocess.ImageFromMat(mat)

			if err != nil {
				log.Printf("failed to convert frame: %v", err)
				continue
			}

			select {
			case frames <- pipeline.Frame{Image: img, When: time.Now()}:
			case <-ctx.Done():
				return nil
			}

			if mjpeg == nil {
				continue
			}

			// draw the most recent cycle over the frame
			src := render.AspectRatio{
				Long:  float32(max(mat.Cols(), mat.Rows())),
				Short: float32(min(mat.Cols(), mat.Rows())),
			}

			mu.Lock()
			cycle := last
			text := lastText
			mu.Unlock()

			var dets []routesight.Detection

			if cycle.Vehicle != nil {
				dets = append(dets, *cycle.Vehicle)
				dets = append(dets, cycle.Read.Symbols...)
			}

			render.DetectionBoxes(&mat, dets, src, render.LandscapeLeft,
				font, 2)
			render.Announcement(&mat, text, font)

			buf, err := gocv.IMEncode(".jpg", mat)

			if err != nil {
				log.Printf("failed to encode frame: %v", err)
				continue
			}

			mjpeg.update(buf.GetBytes())
			buf.Close()
		}
	})

	return g.Wait()
}

// streamer serves the most recent overlay frame as an MJPEG stream
type streamer struct {
	mu    sync.Mutex
	frame []byte
}

// update replaces the frame served to connected clients
func (s *streamer) update(buf []byte) {
	cp := make([]byte, len(buf))
	copy(cp, buf)

	s.mu.Lock()
	s.frame = cp
	s.mu.Unlock()
}

// ServeHTTP streams frames to the client until it disconnects
func (s *streamer) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	log.Printf("stream client connected")

	w.Header().Set("Content-Type",
		"multipart/x-mixed-replace; boundary=frame")

	ticker := time.NewTicker(40 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Printf("stream client disconnected")
			return

		case <-ticker.C:

			s.mu.Lock()
			frame := s.frame
			s.mu.Unlock()

			if frame == nil {
				continue
			}

			w.Write([]byte("--frame\r\n"))
			w.Write([]byte("Content-Type: image/jpeg\r\n\r\n"))
			w.Write(frame)
			w.Write([]byte("\r\n"))

			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}
